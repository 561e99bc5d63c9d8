package generic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/erp-offline/generic"
	"github.com/warp/erp-offline/generic/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// recordedCall captures one transport invocation.
type recordedCall struct {
	Method string
	Path   string
	ID     string
	Rec    generic.Record
}

// fakeTransport records calls and answers from canned responses.
type fakeTransport struct {
	Calls []recordedCall

	ListResult []generic.Record
	GetResult  generic.Record
	Err        error
}

func (f *fakeTransport) List(_ context.Context, path string) ([]generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "LIST", Path: path})
	return f.ListResult, f.Err
}

func (f *fakeTransport) Get(_ context.Context, path, id string) (generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "GET", Path: path, ID: id})
	return f.GetResult, f.Err
}

func (f *fakeTransport) Create(_ context.Context, path string, rec generic.Record) (generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "CREATE", Path: path, Rec: rec.DeepClone()})
	if f.Err != nil {
		return nil, f.Err
	}
	if f.GetResult != nil {
		return f.GetResult, nil
	}
	return rec, nil
}

func (f *fakeTransport) Update(_ context.Context, path, id string, rec generic.Record) (generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "UPDATE", Path: path, ID: id, Rec: rec.DeepClone()})
	return rec, f.Err
}

func (f *fakeTransport) Delete(_ context.Context, path, id string) error {
	f.Calls = append(f.Calls, recordedCall{Method: "DELETE", Path: path, ID: id})
	return f.Err
}

func (f *fakeTransport) FetchOne(_ context.Context, path string) (generic.Record, error) {
	f.Calls = append(f.Calls, recordedCall{Method: "FETCH", Path: path})
	return f.GetResult, f.Err
}

func newTestAdapter(offline bool, policy generic.OpPolicy) (*generic.Adapter, *store.Memory, *fakeTransport) {
	mem := store.NewMemory()
	remote := &fakeTransport{}
	a := &generic.Adapter{
		Name:     "widgets",
		Path:     "/widgets",
		Local:    mem,
		Queue:    mem,
		Remote:   remote,
		Detector: generic.Fixed(offline),
		Policy:   policy,
	}
	return a, mem, remote
}

func queueEntries(t *testing.T, mem *store.Memory) []generic.QueueEntry {
	t.Helper()
	entries, err := mem.All(context.Background())
	require.NoError(t, err)
	return entries
}

// =============================================================================
// OFFLINE CRUD
// =============================================================================

func TestAdapter_OfflineCreate_AssignsLocalIDAndQueues(t *testing.T) {
	// GIVEN: An offline adapter and a record with no identifier
	// WHEN: Creating the record
	// THEN: It gets a local_ ID, is persisted, and exactly one "create"
	//       queue entry is appended

	a, mem, _ := newTestAdapter(true, generic.DualPolicy())
	ctx := context.Background()

	rec, err := a.Create(ctx, generic.Record{"name": "Widget A"})
	require.NoError(t, err)

	assert.True(t, generic.IsLocalID(rec.ID()), "offline creates get local_ IDs, got %q", rec.ID())

	stored, err := mem.GetByID(ctx, "widgets", rec.ID())
	require.NoError(t, err)
	assert.Equal(t, "Widget A", stored.String("name"))

	entries := queueEntries(t, mem)
	require.Len(t, entries, 1)
	assert.Equal(t, generic.OpCreate, entries[0].Op)
	assert.Equal(t, rec.ID(), entries[0].RecordID)
	assert.Equal(t, "Widget A", entries[0].Payload.String("name"))
}

func TestAdapter_OfflineCreate_KeepsCallerID(t *testing.T) {
	a, mem, _ := newTestAdapter(true, generic.DualPolicy())
	ctx := context.Background()

	rec, err := a.Create(ctx, generic.Record{generic.IDField: "srv-42", "name": "Pre-assigned"})
	require.NoError(t, err)
	assert.Equal(t, "srv-42", rec.ID())

	_, err = mem.GetByID(ctx, "widgets", "srv-42")
	assert.NoError(t, err)
}

func TestAdapter_OfflineUpdate_MergesAndQueues(t *testing.T) {
	// GIVEN: An existing local record
	// WHEN: Updating one field
	// THEN: Untouched fields survive, the identifier is preserved, and one
	//       "update" queue entry carries the merged record

	a, mem, _ := newTestAdapter(true, generic.DualPolicy())
	ctx := context.Background()

	require.NoError(t, mem.Put(ctx, "widgets", generic.Record{
		generic.IDField: "w-1",
		"name":          "Widget",
		"price":         5.0,
	}))

	updated, err := a.Update(ctx, "w-1", generic.Record{"price": 7.5})
	require.NoError(t, err)

	assert.Equal(t, "w-1", updated.ID())
	assert.Equal(t, "Widget", updated.String("name"), "untouched field must survive the merge")
	assert.Equal(t, 7.5, updated["price"])

	entries := queueEntries(t, mem)
	require.Len(t, entries, 1)
	assert.Equal(t, generic.OpUpdate, entries[0].Op)
	assert.Equal(t, "w-1", entries[0].RecordID)
}

func TestAdapter_OfflineUpdate_PatchCannotRewriteID(t *testing.T) {
	a, mem, _ := newTestAdapter(true, generic.DualPolicy())
	ctx := context.Background()

	require.NoError(t, mem.Put(ctx, "widgets", generic.Record{generic.IDField: "w-1", "name": "Widget"}))

	updated, err := a.Update(ctx, "w-1", generic.Record{generic.IDField: "evil", "name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "w-1", updated.ID())
}

func TestAdapter_OfflineUpdate_MissingRecord_NotFound(t *testing.T) {
	a, mem, _ := newTestAdapter(true, generic.DualPolicy())

	_, err := a.Update(context.Background(), "nope", generic.Record{"name": "x"})
	assert.True(t, generic.IsNotFound(err))

	assert.Empty(t, queueEntries(t, mem), "failed update must not queue")
}

func TestAdapter_OfflineDelete_ServerRecord_Queued(t *testing.T) {
	a, mem, _ := newTestAdapter(true, generic.DualPolicy())
	ctx := context.Background()

	require.NoError(t, mem.Put(ctx, "widgets", generic.Record{generic.IDField: "srv-9"}))
	require.NoError(t, a.Delete(ctx, "srv-9"))

	_, err := mem.GetByID(ctx, "widgets", "srv-9")
	assert.True(t, generic.IsNotFound(err))

	entries := queueEntries(t, mem)
	require.Len(t, entries, 1)
	assert.Equal(t, generic.OpDelete, entries[0].Op)
	assert.Equal(t, "srv-9", entries[0].RecordID)
}

func TestAdapter_OfflineDelete_LocalRecord_NotQueued(t *testing.T) {
	// GIVEN: A record created offline (local_ ID, never reached the server)
	// WHEN: Deleting it offline
	// THEN: No delete queue entry; the server never knew about it

	a, mem, _ := newTestAdapter(true, generic.DualPolicy())
	ctx := context.Background()

	id := generic.NewLocalID()
	require.NoError(t, mem.Put(ctx, "widgets", generic.Record{generic.IDField: id}))
	require.NoError(t, a.Delete(ctx, id))

	assert.Empty(t, queueEntries(t, mem))
}

func TestAdapter_OfflineCreatesAndDeletes_CountBalances(t *testing.T) {
	a, mem, _ := newTestAdapter(true, generic.DualPolicy())
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		rec, err := a.Create(ctx, generic.Record{"n": i})
		require.NoError(t, err)
		ids = append(ids, rec.ID())
	}
	require.NoError(t, a.Delete(ctx, ids[0]))
	require.NoError(t, a.Delete(ctx, ids[1]))

	recs, err := a.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	n, err := mem.Count(ctx, "widgets")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAdapter_QueuePayload_IsSnapshot(t *testing.T) {
	// Later edits to the returned record must not rewrite queued history.
	a, mem, _ := newTestAdapter(true, generic.DualPolicy())
	ctx := context.Background()

	rec, err := a.Create(ctx, generic.Record{"name": "original"})
	require.NoError(t, err)
	rec["name"] = "mutated afterwards"

	entries := queueEntries(t, mem)
	require.Len(t, entries, 1)
	assert.Equal(t, "original", entries[0].Payload.String("name"))
}

// =============================================================================
// ONLINE ROUTING
// =============================================================================

func TestAdapter_Online_AllOpsHitTransport(t *testing.T) {
	a, mem, remote := newTestAdapter(false, generic.DualPolicy())
	ctx := context.Background()
	remote.ListResult = []generic.Record{{generic.IDField: "srv-1"}}
	remote.GetResult = generic.Record{generic.IDField: "srv-1"}

	_, err := a.GetAll(ctx)
	require.NoError(t, err)
	_, err = a.GetByID(ctx, "srv-1")
	require.NoError(t, err)
	_, err = a.Create(ctx, generic.Record{"name": "x"})
	require.NoError(t, err)
	_, err = a.Update(ctx, "srv-1", generic.Record{"name": "y"})
	require.NoError(t, err)
	require.NoError(t, a.Delete(ctx, "srv-1"))

	require.Len(t, remote.Calls, 5)
	for _, call := range remote.Calls {
		assert.Equal(t, "/widgets", call.Path)
	}

	// Online operations leave no local traces.
	n, err := mem.Count(ctx, "widgets")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, queueEntries(t, mem))
}

// =============================================================================
// ROUTING POLICY
// =============================================================================

func TestAdapter_RemoteOnly_Offline_Rejected(t *testing.T) {
	// GIVEN: An always-online entity (server authority required)
	// WHEN: Any operation runs while offline
	// THEN: ErrUnsupportedOffline, raised, never silently degraded

	a, mem, remote := newTestAdapter(true, generic.RemoteOnlyPolicy())
	ctx := context.Background()

	_, err := a.GetAll(ctx)
	assert.True(t, generic.IsUnsupportedOffline(err))
	_, err = a.Create(ctx, generic.Record{"name": "x"})
	assert.True(t, generic.IsUnsupportedOffline(err))
	err = a.Delete(ctx, "srv-1")
	assert.True(t, generic.IsUnsupportedOffline(err))

	assert.Empty(t, remote.Calls, "rejected operations must not reach the transport")
	assert.Empty(t, queueEntries(t, mem))
}

func TestAdapter_ReadOnlyOffline_ReadsWorkMutationsRejected(t *testing.T) {
	a, mem, _ := newTestAdapter(true, generic.ReadOnlyOfflinePolicy())
	ctx := context.Background()

	require.NoError(t, mem.Put(ctx, "widgets", generic.Record{generic.IDField: "u-1", "username": "admin"}))

	recs, err := a.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = a.Update(ctx, "u-1", generic.Record{"role": "manager"})
	assert.True(t, generic.IsUnsupportedOffline(err))
}
