/*
Package generic provides the mode-agnostic data-access core.

PURPOSE:
  This package contains the domain-agnostic building blocks for offline-first
  entity access: the Record document model, the Store and Queue persistence
  interfaces, the mode detector, the per-entity Adapter, and the offline
  identifier allocator. The erp package wires concrete entity types
  (products, invoices, ...) on top of these primitives.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record: a schemaless entity document keyed by the "_id" field
  - StoreName: names one local collection (one per entity type)
  - Op / QueueEntry: a pending local mutation awaiting reconciliation

DESIGN PRINCIPLES:
  1. Uniformity: every entity type shares the Record shape; only its
     indexable fields and remote path differ
  2. Precision: quantity/money arithmetic goes through decimal.Decimal,
     never raw float64 math
  3. Explicitness: mode and transport are injected per adapter, never
     read from process-wide state

SEE ALSO:
  - store.go:   Store/Queue/Settings interfaces
  - adapter.go: The mode-routing entity adapter
  - mode.go:    Offline/online detection
*/
package generic

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// IDField is the identifier field carried by every Record.
const IDField = "_id"

// StoreName identifies one local collection (one per entity type).
type StoreName string

// Op is the kind of a queued local mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// =============================================================================
// RECORD - Schemaless entity document
// =============================================================================

// Record is a generic entity document: a mapping from field name to value.
// Every persisted Record carries exactly one identifier under IDField.
type Record map[string]any

// ID returns the record identifier, or "" if unset.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// SetID sets the record identifier.
func (r Record) SetID(id string) {
	r[IDField] = id
}

// Clone returns a shallow copy of the record. Nested values are shared;
// use DeepClone for snapshots that must not alias the original.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DeepClone returns an independent copy via a JSON round-trip. Used for
// sync-queue payload snapshots, which must capture the record at time of
// mutation.
func (r Record) DeepClone() Record {
	raw, err := json.Marshal(r)
	if err != nil {
		return r.Clone()
	}
	var out Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return r.Clone()
	}
	return out
}

// Merge returns a new record with patch fields overwriting r's fields.
// Shallow per-field overwrite; the identifier of r is always preserved.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	for k, v := range patch {
		out[k] = v
	}
	if id := r.ID(); id != "" {
		out.SetID(id)
	}
	return out
}

// String returns the named field as a string, or "" when absent or not a
// string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Bool returns the named field as a bool, false when absent.
func (r Record) Bool(field string) bool {
	b, _ := r[field].(bool)
	return b
}

// Decimal returns the named field as a decimal. Records travel through JSON,
// so numbers may arrive as float64, json.Number, or string depending on the
// decoder; all are accepted. Absent or unparseable values yield zero.
func (r Record) Decimal(field string) decimal.Decimal {
	switch v := r[field].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case decimal.Decimal:
		return v
	default:
		return decimal.Zero
	}
}

// SetDecimal stores a decimal under the named field as a float64 so the
// record stays JSON-clean for the remote transport.
func (r Record) SetDecimal(field string, d decimal.Decimal) {
	f, _ := d.Float64()
	r[field] = f
}

// Items returns the named field as a slice of sub-records (e.g. invoice
// line items). Non-record elements are skipped.
func (r Record) Items(field string) []Record {
	raw, ok := r[field].([]any)
	if !ok {
		// A freshly built (not JSON-decoded) document may hold []Record.
		if recs, ok := r[field].([]Record); ok {
			return recs
		}
		return nil
	}
	out := make([]Record, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// =============================================================================
// QUEUE ENTRY - One pending local mutation
// =============================================================================

// QueueEntry records a top-level local mutation that has not yet been
// confirmed against the server. Entries are appended by adapters in the
// order mutations are performed, and replayed independently, in order, by
// the reconciliation side.
type QueueEntry struct {
	ID         string    `json:"id"`
	Store      StoreName `json:"store"`
	Op         Op        `json:"op"`
	RecordID   string    `json:"recordId"`
	Payload    Record    `json:"payload"`
	EnqueuedAt time.Time `json:"enqueuedAt"`

	// Reconciliation bookkeeping. Written only by the drain side.
	Synced    bool      `json:"synced"`
	SyncedAt  time.Time `json:"syncedAt,omitempty"`
	Retries   int       `json:"retries"`
	LastRetry time.Time `json:"lastRetry,omitempty"`
}
