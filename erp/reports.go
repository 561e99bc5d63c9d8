/*
reports.go - Dashboard and report aggregates, computed locally offline

PURPOSE:
  The dashboard and report pages keep working offline by computing their
  aggregates over the local store; online they delegate to the dedicated
  server endpoints and pass the response through untouched. All arithmetic
  runs through decimal to keep totals exact.
*/
package erp

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/erp-offline/generic"
)

// DateRange bounds a report query. Nil ends are unbounded.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

func (r DateRange) query() string {
	v := url.Values{}
	if r.From != nil {
		v.Set("startDate", r.From.Format(time.RFC3339))
	}
	if r.To != nil {
		v.Set("endDate", r.To.Format(time.RFC3339))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// Reports computes dashboard and report aggregates.
type Reports struct {
	local    generic.Store
	remote   generic.Transport
	detector generic.Detector
}

// DashboardStats returns the dashboard headline numbers.
func (r *Reports) DashboardStats(ctx context.Context) (generic.Record, error) {
	if !r.detector.IsOffline() {
		return r.remote.FetchOne(ctx, "/dashboard/stats")
	}

	products, err := r.local.GetAll(ctx, StoreProducts)
	if err != nil {
		return nil, err
	}
	customers, err := r.local.GetAll(ctx, StoreCustomers)
	if err != nil {
		return nil, err
	}
	invoices, err := r.local.GetAll(ctx, StoreInvoices)
	if err != nil {
		return nil, err
	}
	purchases, err := r.local.GetAll(ctx, StorePurchases)
	if err != nil {
		return nil, err
	}

	lowStock := 0
	for _, p := range products {
		if IsLowStock(p) {
			lowStock++
		}
	}

	today := generic.Now().Truncate(24 * time.Hour)
	todaySales := decimal.Zero
	for _, inv := range invoices {
		if docDate(inv).Truncate(24 * time.Hour).Equal(today) {
			todaySales = todaySales.Add(inv.Decimal("total"))
		}
	}

	stats := generic.Record{
		"totalProducts":  len(products),
		"totalCustomers": len(customers),
		"totalInvoices":  len(invoices),
		"lowStockCount":  lowStock,
	}
	stats.SetDecimal("totalSales", sumField(invoices, "total"))
	stats.SetDecimal("totalPurchases", sumField(purchases, "total"))
	stats.SetDecimal("todaySales", todaySales)
	return stats, nil
}

// DashboardAlerts returns low-stock alerts.
func (r *Reports) DashboardAlerts(ctx context.Context) (generic.Record, error) {
	if !r.detector.IsOffline() {
		return r.remote.FetchOne(ctx, "/dashboard/alerts")
	}

	products, err := r.local.GetAll(ctx, StoreProducts)
	if err != nil {
		return nil, err
	}
	alerts := []generic.Record{}
	for _, p := range products {
		if IsLowStock(p) {
			alerts = append(alerts, generic.Record{
				"type":    "low_stock",
				"message": fmt.Sprintf("%s - stock low (%s)", p.String("name"), p.Decimal("stock")),
				"product": p,
			})
		}
	}
	return generic.Record{"alerts": alerts}, nil
}

// Sales reports invoices within the range plus totals.
func (r *Reports) Sales(ctx context.Context, rng DateRange) (generic.Record, error) {
	if !r.detector.IsOffline() {
		return r.remote.FetchOne(ctx, "/reports/sales"+rng.query())
	}

	invoices, err := r.local.GetAll(ctx, StoreInvoices)
	if err != nil {
		return nil, err
	}
	filtered := filterByDate(invoices, rng)

	totalItems := 0
	for _, inv := range filtered {
		totalItems += len(inv.Items("items"))
	}

	out := generic.Record{
		"invoices":      filtered,
		"totalInvoices": len(filtered),
		"totalItems":    totalItems,
	}
	out.SetDecimal("totalSales", sumField(filtered, "total"))
	return out, nil
}

// Inventory reports stock levels and valuation.
func (r *Reports) Inventory(ctx context.Context) (generic.Record, error) {
	if !r.detector.IsOffline() {
		return r.remote.FetchOne(ctx, "/reports/inventory")
	}

	products, err := r.local.GetAll(ctx, StoreProducts)
	if err != nil {
		return nil, err
	}

	totalStock := decimal.Zero
	totalValue := decimal.Zero
	lowStock := []generic.Record{}
	for _, p := range products {
		stock := p.Decimal("stock")
		totalStock = totalStock.Add(stock)
		totalValue = totalValue.Add(stock.Mul(p.Decimal("costPrice")))
		if IsLowStock(p) {
			lowStock = append(lowStock, p)
		}
	}

	out := generic.Record{
		"products":      products,
		"totalProducts": len(products),
		"lowStock":      lowStock,
	}
	out.SetDecimal("totalStock", totalStock)
	out.SetDecimal("totalValue", totalValue)
	return out, nil
}

// Purchases reports purchases within the range plus totals.
func (r *Reports) Purchases(ctx context.Context, rng DateRange) (generic.Record, error) {
	if !r.detector.IsOffline() {
		return r.remote.FetchOne(ctx, "/reports/purchases"+rng.query())
	}

	purchases, err := r.local.GetAll(ctx, StorePurchases)
	if err != nil {
		return nil, err
	}
	filtered := filterByDate(purchases, rng)

	out := generic.Record{
		"purchases":  filtered,
		"totalCount": len(filtered),
	}
	out.SetDecimal("totalPurchases", sumField(filtered, "total"))
	return out, nil
}

// Profit reports gross and net profit.
func (r *Reports) Profit(ctx context.Context, rng DateRange) (generic.Record, error) {
	if !r.detector.IsOffline() {
		return r.remote.FetchOne(ctx, "/reports/profit"+rng.query())
	}

	invoices, err := r.local.GetAll(ctx, StoreInvoices)
	if err != nil {
		return nil, err
	}
	purchases, err := r.local.GetAll(ctx, StorePurchases)
	if err != nil {
		return nil, err
	}
	expenses, err := r.local.GetAll(ctx, StoreExpenses)
	if err != nil {
		return nil, err
	}

	sales := sumField(filterByDate(invoices, rng), "total")
	bought := sumField(filterByDate(purchases, rng), "total")
	spent := sumField(filterByDate(expenses, rng), "amount")

	out := generic.Record{}
	out.SetDecimal("totalSales", sales)
	out.SetDecimal("totalPurchases", bought)
	out.SetDecimal("totalExpenses", spent)
	out.SetDecimal("grossProfit", sales.Sub(bought))
	out.SetDecimal("netProfit", sales.Sub(bought).Sub(spent))
	return out, nil
}

// AccountingSummary reports revenue, expenses, and expenses by category.
func (r *Reports) AccountingSummary(ctx context.Context) (generic.Record, error) {
	if !r.detector.IsOffline() {
		return r.remote.FetchOne(ctx, "/accounting/summary")
	}

	expenses, err := r.local.GetAll(ctx, StoreExpenses)
	if err != nil {
		return nil, err
	}
	accounts, err := r.local.GetAll(ctx, StoreAccounts)
	if err != nil {
		return nil, err
	}
	invoices, err := r.local.GetAll(ctx, StoreInvoices)
	if err != nil {
		return nil, err
	}

	byCategory := map[string]decimal.Decimal{}
	for _, e := range expenses {
		cat := e.String("category")
		if cat == "" {
			cat = "other"
		}
		byCategory[cat] = byCategory[cat].Add(e.Decimal("amount"))
	}
	categories := generic.Record{}
	for cat, sum := range byCategory {
		categories.SetDecimal(cat, sum)
	}

	out := generic.Record{
		"accountsCount":      len(accounts),
		"expensesByCategory": categories,
	}
	out.SetDecimal("totalExpenses", sumField(expenses, "amount"))
	out.SetDecimal("totalRevenue", sumField(invoices, "total"))
	return out, nil
}

func sumField(recs []generic.Record, field string) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range recs {
		sum = sum.Add(rec.Decimal(field))
	}
	return sum
}

// docDate returns the document's business date, falling back to creation
// time, then zero.
func docDate(rec generic.Record) time.Time {
	for _, field := range []string{"date", "createdAt"} {
		if s := rec.String(field); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func filterByDate(recs []generic.Record, rng DateRange) []generic.Record {
	if rng.From == nil && rng.To == nil {
		return recs
	}
	out := []generic.Record{}
	for _, rec := range recs {
		if rng.contains(docDate(rec)) {
			out = append(out, rec)
		}
	}
	return out
}
