/*
adapter.go - The mode-routing entity adapter

PURPOSE:
  One Adapter per entity type presents a uniform interface - GetAll,
  GetByID, Create, Update, Delete - that is indistinguishable to callers
  regardless of mode. The online/offline branch logic is written once here;
  entity wiring (store name, remote path, routing policy) is parameterized
  by the erp package.

CONTRACT PER OPERATION (offline / online):
  GetAll:  all local records / remote list. Empty store is not an error.
  GetByID: local lookup, ErrNotFound if absent / remote get, remote 404
           propagates unchanged.
  Create:  assign local_ ID if absent, persist, queue "create", return the
           persisted record / remote create, server response verbatim.
  Update:  require local record (ErrNotFound), shallow-merge with identifier
           preserved, persist, queue "update" / remote update.
  Delete:  remove locally, queue "delete" / remote delete.

ROUTING POLICY:
  Each operation is either RouteDual (works in both modes) or
  RouteRemoteOnly (server authority required: credentials, licensing,
  payments). A RemoteOnly operation attempted while offline fails with
  ErrUnsupportedOffline - raised, never silently degraded.

QUEUE DISCIPLINE:
  Exactly one queue entry per offline create/update/delete. Side-effect
  writes (the stock cascade) bypass the adapter and write the store
  directly, so they never produce top-level queue entries.

SEE ALSO:
  - erp/registry.go:   Per-entity adapter construction
  - erp/documents.go:  Invoice/purchase creation with the stock cascade
*/
package generic

import (
	"context"
	"fmt"
)

// RoutePolicy decides whether an operation may be served locally.
type RoutePolicy int

const (
	// RouteDual serves the operation from the local store while offline and
	// the remote transport while online.
	RouteDual RoutePolicy = iota

	// RouteRemoteOnly always uses the remote transport; while offline the
	// operation fails with ErrUnsupportedOffline.
	RouteRemoteOnly
)

// OpPolicy assigns a route policy per operation. The zero value is all-dual.
type OpPolicy struct {
	List   RoutePolicy
	Get    RoutePolicy
	Create RoutePolicy
	Update RoutePolicy
	Delete RoutePolicy
}

// DualPolicy routes every operation in both modes.
func DualPolicy() OpPolicy { return OpPolicy{} }

// RemoteOnlyPolicy routes every operation to the server.
func RemoteOnlyPolicy() OpPolicy {
	return OpPolicy{
		List:   RouteRemoteOnly,
		Get:    RouteRemoteOnly,
		Create: RouteRemoteOnly,
		Update: RouteRemoteOnly,
		Delete: RouteRemoteOnly,
	}
}

// ReadOnlyOfflinePolicy serves reads in both modes but requires the server
// for mutations. Used for entities whose writes need server authority but
// whose cached reads are still useful offline (users).
func ReadOnlyOfflinePolicy() OpPolicy {
	return OpPolicy{
		Create: RouteRemoteOnly,
		Update: RouteRemoteOnly,
		Delete: RouteRemoteOnly,
	}
}

// Adapter routes the uniform entity operations to either the remote
// transport or the local durable store, per the current mode.
type Adapter struct {
	Name     StoreName
	Path     string // remote path, e.g. "/products"
	Local    Store
	Queue    Queue
	Remote   Transport
	Detector Detector
	Policy   OpPolicy
}

// route resolves the current mode against the operation's policy. It
// returns true when the operation must be served locally.
func (a *Adapter) route(p RoutePolicy) (bool, error) {
	if !a.Detector.IsOffline() {
		return false, nil
	}
	if p == RouteRemoteOnly {
		return false, fmt.Errorf("%s %s: %w", a.Name, a.Path, ErrUnsupportedOffline)
	}
	return true, nil
}

// GetAll returns all records of this entity type.
func (a *Adapter) GetAll(ctx context.Context) ([]Record, error) {
	offline, err := a.route(a.Policy.List)
	if err != nil {
		return nil, err
	}
	if offline {
		return a.Local.GetAll(ctx, a.Name)
	}
	return a.Remote.List(ctx, a.Path)
}

// GetByID returns one record by identifier.
func (a *Adapter) GetByID(ctx context.Context, id string) (Record, error) {
	offline, err := a.route(a.Policy.Get)
	if err != nil {
		return nil, err
	}
	if offline {
		return a.Local.GetByID(ctx, a.Name, id)
	}
	return a.Remote.Get(ctx, a.Path, id)
}

// GetByIndex returns records whose indexed field exactly matches value.
// Offline this scans the local secondary index; online callers should use
// the entity-specific remote endpoints instead (see erp/products.go).
func (a *Adapter) GetByIndex(ctx context.Context, field, value string) ([]Record, error) {
	return a.Local.GetByIndex(ctx, a.Name, field, value)
}

// Create persists a new record.
func (a *Adapter) Create(ctx context.Context, data Record) (Record, error) {
	offline, err := a.route(a.Policy.Create)
	if err != nil {
		return nil, err
	}
	if !offline {
		return a.Remote.Create(ctx, a.Path, data)
	}

	rec := data.Clone()
	if rec.ID() == "" {
		rec.SetID(NewLocalID())
	}
	if err := a.Local.Put(ctx, a.Name, rec); err != nil {
		return nil, fmt.Errorf("failed to persist %s: %w", a.Name, err)
	}
	if err := a.Queue.Append(ctx, NewQueueEntry(a.Name, OpCreate, rec)); err != nil {
		return nil, fmt.Errorf("failed to queue %s create: %w", a.Name, err)
	}
	return rec, nil
}

// Update merges data into an existing record.
func (a *Adapter) Update(ctx context.Context, id string, data Record) (Record, error) {
	offline, err := a.route(a.Policy.Update)
	if err != nil {
		return nil, err
	}
	if !offline {
		return a.Remote.Update(ctx, a.Path, id, data)
	}

	existing, err := a.Local.GetByID(ctx, a.Name, id)
	if err != nil {
		return nil, err
	}
	merged := existing.Merge(data)
	if err := a.Local.Put(ctx, a.Name, merged); err != nil {
		return nil, fmt.Errorf("failed to persist %s: %w", a.Name, err)
	}
	if err := a.Queue.Append(ctx, NewQueueEntry(a.Name, OpUpdate, merged)); err != nil {
		return nil, fmt.Errorf("failed to queue %s update: %w", a.Name, err)
	}
	return merged, nil
}

// Delete removes a record.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	offline, err := a.route(a.Policy.Delete)
	if err != nil {
		return err
	}
	if !offline {
		return a.Remote.Delete(ctx, a.Path, id)
	}

	if err := a.Local.Delete(ctx, a.Name, id); err != nil {
		return err
	}
	// A record that never reached the server has no server-side obligation;
	// deleting it needs no queue entry.
	if IsLocalID(id) {
		return nil
	}
	return a.Queue.Append(ctx, NewQueueEntry(a.Name, OpDelete, Record{IDField: id}))
}
