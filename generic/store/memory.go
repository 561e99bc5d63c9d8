// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/erp-offline/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements generic.Store, generic.Queue and generic.Settings in
// memory. Secondary-index lookups are served by a full scan; collections
// are small enough in tests that this is fine.
type Memory struct {
	mu       sync.RWMutex
	records  map[generic.StoreName]map[string]generic.Record
	queue    []generic.QueueEntry
	settings map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		records:  make(map[generic.StoreName]map[string]generic.Record),
		settings: make(map[string]string),
	}
}

func (m *Memory) GetAll(_ context.Context, store generic.StoreName) ([]generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]generic.Record, 0, len(m.records[store]))
	for _, rec := range m.records[store] {
		out = append(out, rec.DeepClone())
	}
	return out, nil
}

func (m *Memory) GetByID(_ context.Context, store generic.StoreName, id string) (generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[store][id]
	if !ok {
		return nil, generic.ErrNotFound
	}
	return rec.DeepClone(), nil
}

func (m *Memory) GetByIndex(_ context.Context, store generic.StoreName, field, value string) ([]generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []generic.Record
	for _, rec := range m.records[store] {
		if rec.String(field) == value {
			out = append(out, rec.DeepClone())
		}
	}
	if out == nil {
		out = []generic.Record{}
	}
	return out, nil
}

func (m *Memory) Put(_ context.Context, store generic.StoreName, rec generic.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.records[store] == nil {
		m.records[store] = make(map[string]generic.Record)
	}
	m.records[store][rec.ID()] = rec.DeepClone()
	return nil
}

func (m *Memory) Delete(_ context.Context, store generic.StoreName, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records[store], id)
	return nil
}

func (m *Memory) Count(_ context.Context, store generic.StoreName) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records[store]), nil
}

func (m *Memory) ReplaceAll(_ context.Context, store generic.StoreName, recs []generic.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fresh := make(map[string]generic.Record, len(recs))
	for _, rec := range recs {
		if rec.ID() == "" {
			continue
		}
		fresh[rec.ID()] = rec.DeepClone()
	}
	m.records[store] = fresh
	return nil
}

// =============================================================================
// QUEUE
// =============================================================================

func (m *Memory) Append(_ context.Context, e generic.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.Payload = e.Payload.DeepClone()
	m.queue = append(m.queue, e)
	return nil
}

func (m *Memory) Pending(_ context.Context) ([]generic.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []generic.QueueEntry{}
	for _, e := range m.queue {
		if !e.Synced && e.Retries < generic.MaxQueueRetries {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) All(_ context.Context) ([]generic.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]generic.QueueEntry, len(m.queue))
	copy(out, m.queue)
	return out, nil
}

func (m *Memory) MarkSynced(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.queue {
		if m.queue[i].ID == id {
			m.queue[i].Synced = true
			m.queue[i].SyncedAt = generic.Now()
			return nil
		}
	}
	return generic.ErrNotFound
}

func (m *Memory) IncrementRetry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.queue {
		if m.queue[i].ID == id {
			m.queue[i].Retries++
			m.queue[i].LastRetry = generic.Now()
			return nil
		}
	}
	return generic.ErrNotFound
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.settings[key], nil
}

func (m *Memory) PutSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[key] = value
	return nil
}
