/*
products.go - Product catalog with mode-aware specialized lookups

PURPOSE:
  Products extend the uniform adapter with the lookups the POS and RFID
  flows need: by RFID tag, by barcode, and the low-stock filter. Offline
  these are served from the local store's secondary indexes with the same
  semantics the server endpoints compute; online they delegate to the
  dedicated remote endpoints.

MATCHING:
  Offline index lookups are exact-match on the indexed field. (The server's
  matching semantics are not specified beyond this; exact match is the safe
  default.)
*/
package erp

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/erp-offline/generic"
)

// DefaultLowStockThreshold applies when a product has no minStock of its
// own.
const DefaultLowStockThreshold = 10

// ProductCatalog is the product entity adapter plus specialized lookups.
type ProductCatalog struct {
	*generic.Adapter
}

// GetByRFID returns the product carrying the given RFID tag, or
// ErrNotFound.
func (p *ProductCatalog) GetByRFID(ctx context.Context, tag string) (generic.Record, error) {
	if p.Detector.IsOffline() {
		return p.firstByIndex(ctx, "rfidTag", tag)
	}
	return p.Remote.FetchOne(ctx, p.Path+"/rfid/"+tag)
}

// GetByBarcode returns the product carrying the given barcode, or
// ErrNotFound.
func (p *ProductCatalog) GetByBarcode(ctx context.Context, code string) (generic.Record, error) {
	if p.Detector.IsOffline() {
		return p.firstByIndex(ctx, "barcode", code)
	}
	return p.Remote.FetchOne(ctx, p.Path+"/barcode/"+code)
}

// LowStock returns products whose stock is below their minStock threshold
// (DefaultLowStockThreshold when unset).
func (p *ProductCatalog) LowStock(ctx context.Context) ([]generic.Record, error) {
	if !p.Detector.IsOffline() {
		return p.Remote.List(ctx, p.Path+"/search/low-stock")
	}

	products, err := p.Local.GetAll(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	low := []generic.Record{}
	for _, prod := range products {
		if IsLowStock(prod) {
			low = append(low, prod)
		}
	}
	return low, nil
}

// IsLowStock reports whether a product's stock sits below its threshold.
func IsLowStock(product generic.Record) bool {
	threshold := product.Decimal("minStock")
	if threshold.IsZero() {
		threshold = decimal.NewFromInt(DefaultLowStockThreshold)
	}
	return product.Decimal("stock").LessThan(threshold)
}

func (p *ProductCatalog) firstByIndex(ctx context.Context, field, value string) (generic.Record, error) {
	matches, err := p.Local.GetByIndex(ctx, p.Name, field, value)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, generic.ErrNotFound
	}
	return matches[0], nil
}
