/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router and middleware stack for the local data-access
  surface. The UI process talks to these routes exclusively; it never
  reaches the durable store or sync queue directly.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       The UI renderer runs on a different origin

ROUTE GROUPS:
  /api/{entity}/*        Uniform CRUD per entity type
  /api/products/...      RFID/barcode/low-stock lookups
  /api/mode              Operator mode flag
  /api/auth/*            Login/logout/me (server required)
  /api/licenses/*        Activation and checks (server required)
  /api/sync/*            Queue status, push, download
  /api/dashboard/*       Local aggregates
  /api/reports/*         Local aggregates
  /api/accounting/*      Expenses, accounts, journal entries, summary
  /api/backup/*          Full local-data export/restore

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Always-online services
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})
		r.Route("/licenses", func(r chi.Router) {
			r.Post("/activate", h.LicenseActivate)
			r.Post("/check", h.LicenseCheck)
		})

		// Mode + sync
		r.Get("/mode", h.GetMode)
		r.Put("/mode", h.SetMode)
		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", h.SyncStatus)
			r.Post("/push", h.SyncPush)
			r.Post("/download", h.SyncDownload)
		})

		// Products carry extra lookups on top of the uniform CRUD.
		r.Route("/products", func(r chi.Router) {
			h.mountEntity(r, h.Client.Products)
			r.Get("/rfid/{tag}", h.ProductByRFID)
			r.Get("/barcode/{code}", h.ProductByBarcode)
			r.Get("/search/low-stock", h.ProductsLowStock)
		})

		r.Route("/customers", func(r chi.Router) { h.mountEntity(r, h.Client.Customers) })
		r.Route("/suppliers", func(r chi.Router) { h.mountEntity(r, h.Client.Suppliers) })
		r.Route("/invoices", func(r chi.Router) { h.mountEntity(r, h.Client.Invoices) })
		r.Route("/purchases", func(r chi.Router) { h.mountEntity(r, h.Client.Purchases) })
		r.Route("/users", func(r chi.Router) { h.mountEntity(r, h.Client.Users) })
		r.Route("/warehouses", func(r chi.Router) { h.mountEntity(r, h.Client.Warehouses) })

		r.Route("/accounting", func(r chi.Router) {
			r.Route("/expenses", func(r chi.Router) { h.mountEntity(r, h.Client.Expenses) })
			r.Route("/accounts", func(r chi.Router) { h.mountEntity(r, h.Client.Accounts) })
			r.Route("/journal-entries", func(r chi.Router) { h.mountEntity(r, h.Client.JournalEntries) })
			r.Get("/summary", h.AccountingSummary)
		})

		r.Route("/esl/devices", func(r chi.Router) { h.mountEntity(r, h.Client.ESLDevices) })

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/stats", h.DashboardStats)
			r.Get("/alerts", h.DashboardAlerts)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/sales", h.ReportSales)
			r.Get("/inventory", h.ReportInventory)
			r.Get("/purchases", h.ReportPurchases)
			r.Get("/profit", h.ReportProfit)
		})

		r.Route("/backup", func(r chi.Router) {
			r.Get("/export", h.BackupExport)
			r.Post("/restore", h.BackupRestore)
		})
	})

	return r
}

// mountEntity wires the uniform CRUD routes for one entity adapter.
func (h *Handler) mountEntity(r chi.Router, a entityAPI) {
	r.Get("/", h.listEntity(a))
	r.Post("/", h.createEntity(a))
	r.Get("/{id}", h.getEntity(a))
	r.Put("/{id}", h.updateEntity(a))
	r.Delete("/{id}", h.deleteEntity(a))
}
