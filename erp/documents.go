/*
documents.go - Invoice/purchase creation and the stock mutation cascade

PURPOSE:
  Invoices and purchases are not plain records: creating one offline also
  allocates a visible offline document number and adjusts the stock of
  every referenced product - a decrement for invoices, an increment for
  purchases - mirroring what the server does when online.

CASCADE RULES:
  - Only create() triggers the cascade, and only offline. Online, the
    server applies the equivalent adjustment.
  - The product writes go straight to the store; they are NEVER queued as
    independent sync entries. They ride along with the document that
    caused them.
  - A line referencing a product absent from the local store is skipped
    without failing the document. Inventory consistency offline is
    best-effort; the server corrects it on reconciliation.
  - Document-plus-cascade is one logical unit: when the store supports
    transactions (SQLite), both apply or neither does. A retried create
    carrying an already-persisted document ID does not re-apply the delta
    (stockAppliedField guard).

SEE ALSO:
  - generic/allocator.go: Offline document numbering
  - registry.go:          Where the two document adapters are wired
*/
package erp

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/erp-offline/generic"
)

// stockAppliedField marks a locally-created document whose cascade has
// been applied. Internal bookkeeping; the syncer strips it before replay.
const stockAppliedField = "_stockApplied"

// DocumentAdapter is an entity adapter for invoice-like documents. All
// operations behave like the embedded generic adapter except Create, which
// adds number allocation and the stock cascade on the offline path.
type DocumentAdapter struct {
	*generic.Adapter

	numberField string // "invoiceNumber" / "purchaseNumber"
	prefix      string // "" / "PUR-"
	stockSign   decimal.Decimal
	dueDate     bool // invoices carry a due date
	alloc       *generic.Allocator
	log         *logrus.Logger
}

// Create persists a new document. Online the call is forwarded verbatim;
// offline the document gets an offline number, a local identifier, and its
// stock cascade, then a single "create" queue entry.
func (d *DocumentAdapter) Create(ctx context.Context, data generic.Record) (generic.Record, error) {
	if !d.Detector.IsOffline() {
		return d.Remote.Create(ctx, d.Path, data)
	}

	// Retried create: the document is already persisted with its cascade.
	if id := data.ID(); id != "" {
		if existing, err := d.Local.GetByID(ctx, d.Name, id); err == nil && existing.Bool(stockAppliedField) {
			return existing, nil
		}
	}

	number, err := d.alloc.NextDocumentNumber(ctx, d.Name, d.prefix)
	if err != nil {
		return nil, err
	}

	rec := data.DeepClone()
	rec[d.numberField] = number
	now := generic.Now().Format(time.RFC3339)
	if rec.String("date") == "" {
		rec["date"] = now
	}
	if d.dueDate && rec.String("dueDate") == "" {
		rec["dueDate"] = now
	}
	rec["createdAt"] = now
	if rec.ID() == "" {
		rec.SetID(generic.NewLocalID())
	}
	rec[stockAppliedField] = true

	unit := func(s generic.Store) error {
		if err := s.Put(ctx, d.Name, rec); err != nil {
			return fmt.Errorf("failed to persist %s: %w", d.Name, err)
		}
		return d.applyStockDelta(ctx, s, rec)
	}
	if txs, ok := d.Local.(generic.TxStore); ok {
		err = txs.WithTx(ctx, unit)
	} else {
		err = unit(d.Local)
	}
	if err != nil {
		return nil, err
	}

	if err := d.Queue.Append(ctx, generic.NewQueueEntry(d.Name, generic.OpCreate, rec)); err != nil {
		return nil, fmt.Errorf("failed to queue %s create: %w", d.Name, err)
	}
	return rec, nil
}

// applyStockDelta adjusts each referenced product's stock by the line
// quantity times the document's sign. Product writes bypass the queue.
func (d *DocumentAdapter) applyStockDelta(ctx context.Context, s generic.Store, doc generic.Record) error {
	for _, line := range doc.Items("items") {
		productID := line.String("productId")
		if productID == "" {
			continue
		}
		product, err := s.GetByID(ctx, StoreProducts, productID)
		if generic.IsNotFound(err) {
			d.log.WithFields(logrus.Fields{
				"store":   d.Name,
				"doc":     doc.ID(),
				"product": productID,
			}).Warn("stock cascade: product not in local store, line skipped")
			continue
		}
		if err != nil {
			return err
		}

		qty := line.Decimal("quantity")
		product.SetDecimal("stock", product.Decimal("stock").Add(qty.Mul(d.stockSign)))
		if err := s.Put(ctx, StoreProducts, product); err != nil {
			return fmt.Errorf("failed to persist stock for %s: %w", productID, err)
		}
	}
	return nil
}
