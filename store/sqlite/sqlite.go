/*
Package sqlite provides the durable SQLite-backed local store.

PURPOSE:
  Implements all persistence interfaces (generic.Store, generic.TxStore,
  generic.Queue, generic.Settings) on a single SQLite file. Records are
  stored as JSON documents in one table partitioned by collection name,
  which keeps the schema stable as entity types gain fields.

KEY TABLES:
  records:    One row per entity record (collection, id, JSON document)
  sync_queue: Append-only log of pending local mutations
  settings:   Operator settings (operation mode, sync timestamps)

SECONDARY INDEXES:
  Lookup fields (product rfidTag/barcode/sku, customer phone, ...) are
  served by json_extract. Expression indexes are created per registered
  collection/field pair so index lookups do not scan the table.

WRITE DISCIPLINE:
  No append-only enforcement here - entity records are mutable by design.
  The sync_queue table, however, is only ever INSERTed by adapters;
  UPDATE is limited to the drain-side bookkeeping columns.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within one process. Cross-process
  writers are out of scope: last-write-wins, no locking.

WAL MODE:
  Opened with WAL for better read concurrency and crash recovery.

USAGE:
  store, err := sqlite.New("./data/erp.db", erp.IndexFields())
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go:        Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/erp-offline/generic"
)

// Store implements generic.Store, TxStore, Queue and Settings using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New creates a SQLite store at dbPath (":memory:" for in-memory) and
// builds expression indexes for the given collection/field pairs.
func New(dbPath string, indexes map[generic.StoreName][]string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(indexes); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate(indexes map[generic.StoreName][]string) error {
	schema := `
	-- Entity records, one collection per entity type
	CREATE TABLE IF NOT EXISTS records (
		store_name TEXT NOT NULL,
		id TEXT NOT NULL,
		doc_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (store_name, id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_store
		ON records(store_name);

	-- Sync queue (append-only from the adapters)
	CREATE TABLE IF NOT EXISTS sync_queue (
		id TEXT PRIMARY KEY,
		store_name TEXT NOT NULL,
		op TEXT NOT NULL,
		record_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		enqueued_at TEXT NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		synced_at TEXT,
		retries INTEGER NOT NULL DEFAULT 0,
		last_retry TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_queue_pending
		ON sync_queue(synced, enqueued_at);
	CREATE INDEX IF NOT EXISTS idx_queue_store
		ON sync_queue(store_name);

	-- Operator settings
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Expression indexes for registered secondary-lookup fields, e.g.
	// products.rfidTag. Identifiers are interpolated, so validate them.
	for storeName, fields := range indexes {
		if !identRe.MatchString(string(storeName)) {
			return fmt.Errorf("invalid store name %q", storeName)
		}
		for _, field := range fields {
			if !identRe.MatchString(field) {
				return fmt.Errorf("invalid index field %q on %s", field, storeName)
			}
			stmt := fmt.Sprintf(
				`CREATE INDEX IF NOT EXISTS idx_records_%s_%s
					ON records(json_extract(doc_json, '$.%s'))
					WHERE store_name = '%s'`,
				storeName, field, field, storeName)
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to create index %s.%s: %w", storeName, field, err)
			}
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// RECORD STORE (generic.Store interface)
// =============================================================================

func (s *Store) GetAll(ctx context.Context, store generic.StoreName) ([]generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAll(ctx, s.db, store)
}

func getAll(ctx context.Context, db querier, store generic.StoreName) ([]generic.Record, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT doc_json FROM records WHERE store_name = ? ORDER BY rowid`, store)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", store, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) GetByID(ctx context.Context, store generic.StoreName, id string) (generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getByID(ctx, s.db, store, id)
}

func getByID(ctx context.Context, db querier, store generic.StoreName, id string) (generic.Record, error) {
	var doc string
	err := db.QueryRowContext(ctx,
		`SELECT doc_json FROM records WHERE store_name = ? AND id = ?`, store, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, generic.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", store, id, err)
	}
	return decodeRecord(doc)
}

func (s *Store) GetByIndex(ctx context.Context, store generic.StoreName, field, value string) ([]generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// The JSON path is a bound parameter; the expression index on the same
	// json_extract form keeps this off the scan path for registered fields.
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_json FROM records
		 WHERE store_name = ? AND json_extract(doc_json, ?) = ?
		 ORDER BY rowid`,
		store, "$."+field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", store, field, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) Put(ctx context.Context, store generic.StoreName, rec generic.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(ctx, s.db, store, rec)
}

func put(ctx context.Context, db execer, store generic.StoreName, rec generic.Record) error {
	if rec.ID() == "" {
		return fmt.Errorf("cannot persist %s record without %s", store, generic.IDField)
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", store, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO records (store_name, id, doc_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(store_name, id) DO UPDATE SET
			doc_json = excluded.doc_json,
			updated_at = excluded.updated_at`,
		store, rec.ID(), string(doc), generic.Now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to persist %s/%s: %w", store, rec.ID(), err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, store generic.StoreName, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return del(ctx, s.db, store, id)
}

func del(ctx context.Context, db execer, store generic.StoreName, id string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM records WHERE store_name = ? AND id = ?`, store, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", store, id, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, store generic.StoreName) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return count(ctx, s.db, store)
}

func count(ctx context.Context, db querier, store generic.StoreName) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE store_name = ?`, store).Scan(&n)
	return n, err
}

func (s *Store) ReplaceAll(ctx context.Context, store generic.StoreName, recs []generic.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE store_name = ?`, store); err != nil {
		return fmt.Errorf("failed to clear %s: %w", store, err)
	}
	for _, rec := range recs {
		if rec.ID() == "" {
			continue
		}
		if err := put(ctx, tx, store, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanRecords(rows *sql.Rows) ([]generic.Record, error) {
	recs := []generic.Record{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decodeRecord(doc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func decodeRecord(doc string) (generic.Record, error) {
	var rec generic.Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. Used for
// document-create-plus-cascade so both apply or neither does.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetAll(ctx context.Context, store generic.StoreName) ([]generic.Record, error) {
	return getAll(ctx, ts.tx, store)
}

func (ts *txStore) GetByID(ctx context.Context, store generic.StoreName, id string) (generic.Record, error) {
	return getByID(ctx, ts.tx, store, id)
}

func (ts *txStore) GetByIndex(ctx context.Context, store generic.StoreName, field, value string) ([]generic.Record, error) {
	rows, err := ts.tx.QueryContext(ctx,
		`SELECT doc_json FROM records
		 WHERE store_name = ? AND json_extract(doc_json, ?) = ?
		 ORDER BY rowid`,
		store, "$."+field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", store, field, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (ts *txStore) Put(ctx context.Context, store generic.StoreName, rec generic.Record) error {
	return put(ctx, ts.tx, store, rec)
}

func (ts *txStore) Delete(ctx context.Context, store generic.StoreName, id string) error {
	return del(ctx, ts.tx, store, id)
}

func (ts *txStore) Count(ctx context.Context, store generic.StoreName) (int, error) {
	return count(ctx, ts.tx, store)
}

func (ts *txStore) ReplaceAll(ctx context.Context, store generic.StoreName, recs []generic.Record) error {
	if _, err := ts.tx.ExecContext(ctx,
		`DELETE FROM records WHERE store_name = ?`, store); err != nil {
		return fmt.Errorf("failed to clear %s: %w", store, err)
	}
	for _, rec := range recs {
		if rec.ID() == "" {
			continue
		}
		if err := put(ctx, ts.tx, store, rec); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SYNC QUEUE (generic.Queue interface)
// =============================================================================

func (s *Store) Append(ctx context.Context, e generic.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode queue payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_queue (id, store_name, op, record_id, payload_json, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Store, e.Op, e.RecordID, string(payload),
		e.EnqueuedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append queue entry: %w", err)
	}
	return nil
}

func (s *Store) Pending(ctx context.Context) ([]generic.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryQueue(ctx, `
		SELECT id, store_name, op, record_id, payload_json, enqueued_at,
		       synced, synced_at, retries, last_retry
		FROM sync_queue
		WHERE synced = 0 AND retries < ?
		ORDER BY enqueued_at, rowid`, generic.MaxQueueRetries)
}

func (s *Store) All(ctx context.Context) ([]generic.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryQueue(ctx, `
		SELECT id, store_name, op, record_id, payload_json, enqueued_at,
		       synced, synced_at, retries, last_retry
		FROM sync_queue
		ORDER BY enqueued_at, rowid`)
}

func (s *Store) MarkSynced(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET synced = 1, synced_at = ? WHERE id = ?`,
		generic.Now().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to mark queue entry synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementRetry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET retries = retries + 1, last_retry = ? WHERE id = ?`,
		generic.Now().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to increment queue retry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

func (s *Store) queryQueue(ctx context.Context, query string, args ...any) ([]generic.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync queue: %w", err)
	}
	defer rows.Close()

	entries := []generic.QueueEntry{}
	for rows.Next() {
		var (
			e          generic.QueueEntry
			payload    string
			enqueuedAt string
			syncedAt   sql.NullString
			lastRetry  sql.NullString
		)
		err := rows.Scan(&e.ID, &e.Store, &e.Op, &e.RecordID, &payload,
			&enqueuedAt, &e.Synced, &syncedAt, &e.Retries, &lastRetry)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode queue payload: %w", err)
		}
		e.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, enqueuedAt)
		if syncedAt.Valid {
			e.SyncedAt, _ = time.Parse(time.RFC3339Nano, syncedAt.String)
		}
		if lastRetry.Valid {
			e.LastRetry, _ = time.Parse(time.RFC3339Nano, lastRetry.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// SETTINGS (generic.Settings interface)
// =============================================================================

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, generic.Now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to persist setting %s: %w", key, err)
	}
	return nil
}
