/*
handlers.go - HTTP handlers for the local data-access surface

PURPOSE:
  Exposes the entity adapters, sync controls, and local aggregates to the
  UI process over HTTP. Handlers parse the request, call the adapter, and
  serialize the result; all mode routing happens below them, so the same
  handler serves both modes.

ERROR MAPPING:
  - NotFound            -> 404
  - UnsupportedOffline  -> 503 (action needs the server; none reachable)
  - TransportError      -> the remote status code, passed through
  - anything else       -> 500

SEE ALSO:
  - server.go: Router setup and middleware
  - dto.go:    Response envelopes
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/erp-offline/erp"
	"github.com/warp/erp-offline/generic"
	"github.com/warp/erp-offline/syncer"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Client   *erp.Client
	Sync     *syncer.Syncer
	Local    generic.Store
	Queue    generic.Queue
	Settings generic.Settings
	Flag     *generic.Flag
	Detector generic.Detector
	Log      *logrus.Logger
}

// entityAPI is the uniform adapter surface the generic entity handlers
// serve. Both *generic.Adapter and the document adapters satisfy it.
type entityAPI interface {
	GetAll(ctx context.Context) ([]generic.Record, error)
	GetByID(ctx context.Context, id string) (generic.Record, error)
	Create(ctx context.Context, data generic.Record) (generic.Record, error)
	Update(ctx context.Context, id string, data generic.Record) (generic.Record, error)
	Delete(ctx context.Context, id string) error
}

// =============================================================================
// GENERIC ENTITY HANDLERS
// =============================================================================

func (h *Handler) listEntity(a entityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := a.GetAll(r.Context())
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func (h *Handler) getEntity(a entityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := a.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) createEntity(a entityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data generic.Record
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: "invalid JSON body", Details: err.Error()})
			return
		}
		rec, err := a.Create(r.Context(), data)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (h *Handler) updateEntity(a entityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data generic.Record
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: "invalid JSON body", Details: err.Error()})
			return
		}
		rec, err := a.Update(r.Context(), chi.URLParam(r, "id"), data)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) deleteEntity(a entityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			h.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// =============================================================================
// PRODUCT LOOKUPS
// =============================================================================

func (h *Handler) ProductByRFID(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Client.Products.GetByRFID(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ProductByBarcode(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Client.Products.GetByBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ProductsLowStock(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Client.Products.LowStock(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// =============================================================================
// AUTH / LICENSING (always online, pass-through)
// =============================================================================

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds generic.Record
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: "invalid JSON body", Details: err.Error()})
		return
	}
	rec, err := h.Client.Auth.Login(r.Context(), creds)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: "invalid JSON body", Details: err.Error()})
		return
	}
	if err := h.Client.Auth.Logout(r.Context(), body.Token); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Client.Auth.Me(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) LicenseActivate(w http.ResponseWriter, r *http.Request) {
	h.licenseCall(w, r, h.Client.Licensing.Activate)
}

func (h *Handler) LicenseCheck(w http.ResponseWriter, r *http.Request) {
	h.licenseCall(w, r, h.Client.Licensing.Check)
}

func (h *Handler) licenseCall(w http.ResponseWriter, r *http.Request, fn func(context.Context, generic.Record) (generic.Record, error)) {
	var req generic.Record
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: "invalid JSON body", Details: err.Error()})
		return
	}
	rec, err := fn(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// =============================================================================
// MODE
// =============================================================================

func (h *Handler) GetMode(w http.ResponseWriter, r *http.Request) {
	effective := generic.ModeOnline
	if h.Detector.IsOffline() {
		effective = generic.ModeOffline
	}
	writeJSON(w, http.StatusOK, ModeDTO{
		Mode:      string(h.Flag.Mode()),
		Effective: string(effective),
	})
}

// SetMode persists the operator mode flag and refreshes the cached value.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var dto ModeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: "invalid JSON body", Details: err.Error()})
		return
	}
	mode := generic.Mode(dto.Mode)
	if mode != generic.ModeOnline && mode != generic.ModeOffline {
		writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: "mode must be \"online\" or \"offline\""})
		return
	}
	if err := h.Settings.PutSetting(r.Context(), generic.SettingOperationMode, string(mode)); err != nil {
		h.writeError(w, err)
		return
	}
	h.Flag.Set(mode)
	h.GetMode(w, r)
}

// =============================================================================
// SYNC
// =============================================================================

func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Sync.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) SyncPush(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sync.Push(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) SyncDownload(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sync.Pull(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// DASHBOARD / REPORTS
// =============================================================================

func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r, h.Client.Reports.DashboardStats)
}

func (h *Handler) DashboardAlerts(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r, h.Client.Reports.DashboardAlerts)
}

func (h *Handler) ReportSales(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Client.Reports.Sales(r.Context(), parseRange(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ReportInventory(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r, h.Client.Reports.Inventory)
}

func (h *Handler) ReportPurchases(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Client.Reports.Purchases(r.Context(), parseRange(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ReportProfit(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Client.Reports.Profit(r.Context(), parseRange(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) AccountingSummary(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r, h.Client.Reports.AccountingSummary)
}

func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, fn func(context.Context) (generic.Record, error)) {
	rec, err := fn(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func parseRange(r *http.Request) erp.DateRange {
	var rng erp.DateRange
	if s := r.URL.Query().Get("startDate"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			rng.From = &t
		}
	}
	if s := r.URL.Query().Get("endDate"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			rng.To = &t
		}
	}
	return rng
}

// =============================================================================
// BACKUP
// =============================================================================

var backupStores = []generic.StoreName{
	erp.StoreProducts, erp.StoreCustomers, erp.StoreSuppliers,
	erp.StoreInvoices, erp.StorePurchases, erp.StoreUsers,
	erp.StoreWarehouses, erp.StoreExpenses, erp.StoreAccounts,
	erp.StoreJournalEntries, erp.StoreESLDevices,
}

// BackupExport dumps every collection plus the sync queue.
func (h *Handler) BackupExport(w http.ResponseWriter, r *http.Request) {
	dump := BackupDTO{
		Version:    1,
		ExportDate: generic.Now().Format(time.RFC3339),
		Stores:     make(map[generic.StoreName][]generic.Record, len(backupStores)),
	}
	for _, store := range backupStores {
		recs, err := h.Local.GetAll(r.Context(), store)
		if err != nil {
			h.writeError(w, err)
			return
		}
		dump.Stores[store] = recs
	}
	queue, err := h.Queue.All(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	dump.Queue = queue
	writeJSON(w, http.StatusOK, dump)
}

// BackupRestore replaces each collection present in the payload. The sync
// queue is not restored; replaying another device's pending mutations
// would double-apply them.
func (h *Handler) BackupRestore(w http.ResponseWriter, r *http.Request) {
	var dump BackupDTO
	if err := json.NewDecoder(r.Body).Decode(&dump); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: "invalid backup payload", Details: err.Error()})
		return
	}
	for store, recs := range dump.Stores {
		if erp.RemotePath(store) == "" {
			continue // unknown collection name, skip
		}
		if err := h.Local.ReplaceAll(r.Context(), store, recs); err != nil {
			h.writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorDTO{Error: "not found", Details: err.Error()})
	case generic.IsUnsupportedOffline(err):
		writeJSON(w, http.StatusServiceUnavailable, ErrorDTO{Error: "requires server connection", Details: err.Error()})
	default:
		if te, ok := generic.IsTransport(err); ok && te.StatusCode > 0 {
			writeJSON(w, te.StatusCode, ErrorDTO{Error: "remote call failed", Details: te.Body})
			return
		}
		h.Log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorDTO{Error: "internal error", Details: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
