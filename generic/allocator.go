/*
allocator.go - Offline identifier and document-number allocation

PURPOSE:
  Records created while offline need two kinds of identifiers:

  1. A record ID ("local_<uuid>") that is locally unique and visibly
     distinct from server-issued IDs, so reconciliation knows to strip it
     before the replayed create.
  2. A human-readable document number ("OFF-0001", "PUR-OFF-0001") derived
     from the current store size, so a person can tell an offline-originated
     invoice from a server-numbered one at a glance.

NOT GLOBALLY UNIQUE:
  Document numbers are a plain count of the local store at creation time.
  Two devices creating offline documents independently WILL collide; the
  server-side reconciliation process owns resolving that. Nothing in this
  core may assume these numbers are globally unique.
*/
package generic

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LocalIDPrefix marks record identifiers issued without server contact.
const LocalIDPrefix = "local_"

// OfflineMarker appears in every offline-issued document number.
const OfflineMarker = "OFF-"

// NewLocalID returns a fresh locally-issued record identifier.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was issued locally (offline) rather than by
// the server.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Allocator produces offline document numbers against a local store.
type Allocator struct {
	store Store
}

func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store}
}

// NextDocumentNumber formats the next number for the given collection:
// a fixed entity prefix, the offline marker, and a zero-padded sequential
// suffix derived from the current store size. Distinct entity prefixes keep
// numbers from different document types from colliding even though both
// counters start near zero.
func (a *Allocator) NextDocumentNumber(ctx context.Context, store StoreName, prefix string) (string, error) {
	n, err := a.store.Count(ctx, store)
	if err != nil {
		return "", fmt.Errorf("failed to count %s: %w", store, err)
	}
	return fmt.Sprintf("%s%s%04d", prefix, OfflineMarker, n+1), nil
}

// NewQueueEntry builds a queue entry for a top-level mutation. The payload
// is deep-copied so later edits to the record cannot rewrite history.
func NewQueueEntry(store StoreName, op Op, rec Record) QueueEntry {
	return QueueEntry{
		ID:         "queue_" + uuid.NewString(),
		Store:      store,
		Op:         op,
		RecordID:   rec.ID(),
		Payload:    rec.DeepClone(),
		EnqueuedAt: Now(),
	}
}
