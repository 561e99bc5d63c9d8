/*
store.go - Persistence interfaces for the local durable store and sync queue

PURPOSE:
  Defines the interface between the adapters and local persistence. The
  Store is a keyed, indexed, table-per-entity-type document store; the
  Queue is the append-only log of pending local mutations.

WRITE DISCIPLINE:
  - Only adapters and the stock cascade write to the Store.
  - The Queue is append-only from the adapters' perspective. The drain-side
    methods (Pending, MarkSynced, IncrementRetry) exist for the
    reconciliation process and are never called by adapters.
  - Side-effect writes (stock cascades) go straight to the Store and are
    never queued as independent top-level entries.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:  Durable SQLite store (production)
  - generic/store/memory.go: In-memory store (testing/dev)
*/
package generic

import "context"

// Store is the local durable store: one collection per entity type, records
// keyed by identifier, optional non-unique secondary indexes.
type Store interface {
	// GetAll returns every record in the collection. Order is store
	// iteration order; an empty collection yields an empty slice, not an
	// error.
	GetAll(ctx context.Context, store StoreName) ([]Record, error)

	// GetByID returns the record with the given identifier, or ErrNotFound.
	GetByID(ctx context.Context, store StoreName, id string) (Record, error)

	// GetByIndex returns all records whose field exactly matches value.
	// Indexes are non-unique; no match yields an empty slice.
	GetByIndex(ctx context.Context, store StoreName, field, value string) ([]Record, error)

	// Put inserts or replaces the record under its identifier.
	Put(ctx context.Context, store StoreName, rec Record) error

	// Delete removes the record. Deleting an absent record is not an error.
	Delete(ctx context.Context, store StoreName, id string) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context, store StoreName) (int, error)

	// ReplaceAll atomically swaps the collection's contents for recs.
	// Used when hydrating from the server.
	ReplaceAll(ctx context.Context, store StoreName, recs []Record) error
}

// TxStore extends Store with a transactional unit. Document-create-plus-
// cascade runs inside WithTx when the store supports it, so a failure never
// leaves the document persisted without its cascade or vice versa.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// MaxQueueRetries parks a queue entry after this many failed replays.
// Parked entries are excluded from Pending but kept for inspection.
const MaxQueueRetries = 5

// Queue is the sync queue: an ordered log of local mutations pending
// reconciliation with the server.
type Queue interface {
	// Append adds an entry. The only method adapters call.
	Append(ctx context.Context, e QueueEntry) error

	// Pending returns unsynced entries with fewer than MaxQueueRetries
	// retries, in original append order.
	Pending(ctx context.Context) ([]QueueEntry, error)

	// All returns every entry regardless of state, in append order.
	All(ctx context.Context) ([]QueueEntry, error)

	// MarkSynced flags an entry as confirmed by the server.
	MarkSynced(ctx context.Context, id string) error

	// IncrementRetry bumps an entry's retry counter after a failed replay.
	IncrementRetry(ctx context.Context, id string) error
}

// Settings is a small key/value area for persisted operator settings
// (operation mode, last-sync timestamps). Missing keys yield "".
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}
