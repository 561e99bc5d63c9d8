package erp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/erp-offline/erp"
	"github.com/warp/erp-offline/generic"
	"github.com/warp/erp-offline/generic/store"
)

func taggedProduct(id, rfid, barcode string) generic.Record {
	return generic.Record{
		generic.IDField: id,
		"name":          "Product " + id,
		"rfidTag":       rfid,
		"barcode":       barcode,
		"stock":         25.0,
	}
}

func seed(t *testing.T, mem *store.Memory, recs ...generic.Record) {
	t.Helper()
	for _, rec := range recs {
		require.NoError(t, mem.Put(context.Background(), erp.StoreProducts, rec))
	}
}

// =============================================================================
// RFID / BARCODE LOOKUPS
// =============================================================================

func TestProducts_GetByRFID_Offline(t *testing.T) {
	client, mem, _ := newTestClient(true)
	seed(t, mem,
		taggedProduct("p-1", "RFID-A", "111"),
		taggedProduct("p-2", "RFID-B", "222"),
	)

	got, err := client.Products.GetByRFID(context.Background(), "RFID-B")
	require.NoError(t, err)
	assert.Equal(t, "p-2", got.ID())

	_, err = client.Products.GetByRFID(context.Background(), "RFID-ZZ")
	assert.True(t, generic.IsNotFound(err))
}

func TestProducts_GetByBarcode_Offline(t *testing.T) {
	client, mem, _ := newTestClient(true)
	seed(t, mem, taggedProduct("p-1", "RFID-A", "4006381333931"))

	got, err := client.Products.GetByBarcode(context.Background(), "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, "p-1", got.ID())
}

func TestProducts_Lookups_Online_UseDedicatedEndpoints(t *testing.T) {
	client, _, remote := newTestClient(false)
	remote.GetResult = generic.Record{generic.IDField: "srv-p"}

	_, err := client.Products.GetByRFID(context.Background(), "RFID-A")
	require.NoError(t, err)
	_, err = client.Products.GetByBarcode(context.Background(), "123")
	require.NoError(t, err)

	require.Len(t, remote.Calls, 2)
	assert.Equal(t, "/products/rfid/RFID-A", remote.Calls[0].Path)
	assert.Equal(t, "/products/barcode/123", remote.Calls[1].Path)
}

// =============================================================================
// LOW STOCK
// =============================================================================

func TestIsLowStock_Thresholds(t *testing.T) {
	cases := []struct {
		name string
		rec  generic.Record
		low  bool
	}{
		{"below explicit threshold", generic.Record{"stock": 4.0, "minStock": 5.0}, true},
		{"at explicit threshold", generic.Record{"stock": 5.0, "minStock": 5.0}, false},
		{"below default threshold", generic.Record{"stock": 9.0}, true},
		{"at default threshold", generic.Record{"stock": 10.0}, false},
		{"zero minStock falls back to default", generic.Record{"stock": 9.0, "minStock": 0.0}, true},
		{"missing stock counts as zero", generic.Record{"name": "no stock field"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.low, erp.IsLowStock(tc.rec))
		})
	}
}

func TestProducts_LowStock_Offline(t *testing.T) {
	client, mem, _ := newTestClient(true)
	seed(t, mem,
		generic.Record{generic.IDField: "p-ok", "stock": 50.0},
		generic.Record{generic.IDField: "p-low", "stock": 2.0},
		generic.Record{generic.IDField: "p-custom", "stock": 8.0, "minStock": 20.0},
	)

	low, err := client.Products.LowStock(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(low))
	for _, p := range low {
		ids = append(ids, p.ID())
	}
	assert.ElementsMatch(t, []string{"p-low", "p-custom"}, ids)
}

func TestProducts_LowStock_Online(t *testing.T) {
	client, _, remote := newTestClient(false)
	remote.ListResult = []generic.Record{{generic.IDField: "srv-low"}}

	low, err := client.Products.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)

	require.Len(t, remote.Calls, 1)
	assert.Equal(t, "/products/search/low-stock", remote.Calls[0].Path)
}
