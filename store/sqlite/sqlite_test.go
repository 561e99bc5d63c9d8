package sqlite_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/erp-offline/generic"
	"github.com/warp/erp-offline/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:", map[generic.StoreName][]string{
		"products": {"sku", "rfidTag", "barcode"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func product(id, sku string, stock float64) generic.Record {
	return generic.Record{
		generic.IDField: id,
		"sku":           sku,
		"name":          "Product " + id,
		"stock":         stock,
	}
}

// =============================================================================
// RECORD STORE
// =============================================================================

func TestStore_PutGet_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := product("p-1", "SKU-1", 12)
	rec["nested"] = map[string]any{"a": "b"}
	require.NoError(t, store.Put(ctx, "products", rec))

	got, err := store.GetByID(ctx, "products", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", got.String("sku"))
	assert.Equal(t, "Product p-1", got.String("name"))
	assert.True(t, got.Decimal("stock").Equal(rec.Decimal("stock")))
}

func TestStore_Put_Upserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "products", product("p-1", "SKU-1", 12)))
	require.NoError(t, store.Put(ctx, "products", product("p-1", "SKU-1b", 3)))

	got, err := store.GetByID(ctx, "products", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "SKU-1b", got.String("sku"))

	n, err := store.Count(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Put_RejectsMissingID(t *testing.T) {
	store := newTestStore(t)
	err := store.Put(context.Background(), "products", generic.Record{"name": "no id"})
	assert.Error(t, err)
}

func TestStore_GetByID_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetByID(context.Background(), "products", "missing")
	assert.True(t, generic.IsNotFound(err))
}

func TestStore_GetAll_PreservesInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Put(ctx, "products", product(fmt.Sprintf("p-%d", i), fmt.Sprintf("SKU-%d", i), 1)))
	}

	recs, err := store.GetAll(ctx, "products")
	require.NoError(t, err)
	require.Len(t, recs, 5)
	for i, rec := range recs {
		assert.Equal(t, fmt.Sprintf("p-%d", i+1), rec.ID())
	}
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "products", product("x-1", "SKU", 1)))
	require.NoError(t, store.Put(ctx, "customers", generic.Record{generic.IDField: "x-1", "name": "Alice"}))

	prod, err := store.GetByID(ctx, "products", "x-1")
	require.NoError(t, err)
	cust, err := store.GetByID(ctx, "customers", "x-1")
	require.NoError(t, err)

	assert.Equal(t, "SKU", prod.String("sku"))
	assert.Equal(t, "Alice", cust.String("name"))

	require.NoError(t, store.Delete(ctx, "products", "x-1"))
	_, err = store.GetByID(ctx, "customers", "x-1")
	assert.NoError(t, err, "deleting from one collection must not touch another")
}

func TestStore_GetByIndex_ExactMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p1 := product("p-1", "SKU-1", 1)
	p1["rfidTag"] = "RFID-AAA"
	p2 := product("p-2", "SKU-2", 1)
	p2["rfidTag"] = "RFID-BBB"
	require.NoError(t, store.Put(ctx, "products", p1))
	require.NoError(t, store.Put(ctx, "products", p2))

	matches, err := store.GetByIndex(ctx, "products", "rfidTag", "RFID-BBB")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p-2", matches[0].ID())

	// No match is an empty slice, not an error.
	matches, err = store.GetByIndex(ctx, "products", "rfidTag", "RFID-ZZZ")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_ReplaceAll_SwapsCollectionWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "products", product("old-1", "SKU-OLD", 1)))
	require.NoError(t, store.Put(ctx, "products", product("old-2", "SKU-OLD2", 1)))

	fresh := []generic.Record{
		product("new-1", "SKU-N1", 5),
		product("new-2", "SKU-N2", 6),
		product("new-3", "SKU-N3", 7),
	}
	require.NoError(t, store.ReplaceAll(ctx, "products", fresh))

	recs, err := store.GetAll(ctx, "products")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	_, err = store.GetByID(ctx, "products", "old-1")
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s generic.Store) error {
		if err := s.Put(ctx, "invoices", generic.Record{generic.IDField: "i-1", "total": 100.0}); err != nil {
			return err
		}
		return s.Put(ctx, "products", product("p-1", "SKU-1", 9))
	})
	require.NoError(t, err)

	_, err = store.GetByID(ctx, "invoices", "i-1")
	assert.NoError(t, err)
	_, err = store.GetByID(ctx, "products", "p-1")
	assert.NoError(t, err)
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that writes an invoice then fails
	// WHEN: WithTx returns the error
	// THEN: Nothing from the transaction is visible

	store := newTestStore(t)
	ctx := context.Background()

	boom := fmt.Errorf("cascade failed")
	err := store.WithTx(ctx, func(s generic.Store) error {
		if err := s.Put(ctx, "invoices", generic.Record{generic.IDField: "i-1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetByID(ctx, "invoices", "i-1")
	assert.True(t, generic.IsNotFound(err), "rolled-back write must not be visible")
}

// =============================================================================
// SYNC QUEUE
// =============================================================================

func TestStore_Queue_AppendAndDrainOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		e := generic.NewQueueEntry("products", generic.OpCreate,
			generic.Record{generic.IDField: fmt.Sprintf("p-%d", i)})
		require.NoError(t, store.Append(ctx, e))
	}

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i, e := range pending {
		assert.Equal(t, fmt.Sprintf("p-%d", i+1), e.RecordID, "drain order must match append order")
	}
}

func TestStore_Queue_MarkSyncedExcludesFromPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := generic.NewQueueEntry("products", generic.OpCreate, generic.Record{generic.IDField: "p-1"})
	require.NoError(t, store.Append(ctx, e))
	require.NoError(t, store.MarkSynced(ctx, e.ID))

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Synced)
	assert.False(t, all[0].SyncedAt.IsZero())
}

func TestStore_Queue_RetriesParkEntry(t *testing.T) {
	// An entry that failed MaxQueueRetries times is parked: excluded from
	// Pending but kept in the table.
	store := newTestStore(t)
	ctx := context.Background()

	e := generic.NewQueueEntry("products", generic.OpUpdate, generic.Record{generic.IDField: "p-1"})
	require.NoError(t, store.Append(ctx, e))

	for i := 0; i < generic.MaxQueueRetries; i++ {
		require.NoError(t, store.IncrementRetry(ctx, e.ID))
	}

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, generic.MaxQueueRetries, all[0].Retries)
	assert.False(t, all[0].Synced)
}

func TestStore_Queue_UnknownEntry_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.True(t, generic.IsNotFound(store.MarkSynced(ctx, "ghost")))
	assert.True(t, generic.IsNotFound(store.IncrementRetry(ctx, "ghost")))
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestStore_Settings_MissingKeyIsEmpty(t *testing.T) {
	store := newTestStore(t)
	v, err := store.GetSetting(context.Background(), "never-set")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestStore_Settings_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutSetting(ctx, generic.SettingOperationMode, "offline"))
	require.NoError(t, store.PutSetting(ctx, generic.SettingOperationMode, "online"))

	v, err := store.GetSetting(ctx, generic.SettingOperationMode)
	require.NoError(t, err)
	assert.Equal(t, "online", v)
}
