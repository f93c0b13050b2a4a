package dashboard

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/store"
)

// Handler exposes dashboard read endpoints.
type Handler struct {
	Svc *Service
}

// Summary returns totals across all vendors.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	summary, err := h.Svc.GlobalSummary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, summary)
}

// Vendor returns totals for the vendor in the URL.
func (h *Handler) Vendor(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	vendorID, ok := common.ParseID(chi.URLParam(r, "vendorID"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid vendor id", nil)
		return
	}
	summary, err := h.Svc.VendorSummary(r.Context(), vendorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, summary)
}

// Ranking returns vendors ordered by revenue.
func (h *Handler) Ranking(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	ranking, err := h.Svc.VendorRanking(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, ranking)
}

// Trend returns daily totals.
func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	trend, err := h.Svc.DailyTrend(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, trend)
}

// Vendors lists the vendor directory.
func (h *Handler) Vendors(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	vendors, err := h.Svc.ListVendors(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if vendors == nil {
		vendors = []store.Vendor{}
	}
	common.Data(w, http.StatusOK, vendors)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Svc == nil || h.Svc.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "DASHBOARD_NOT_CONFIGURED", "dashboard service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("dashboard store unavailable")
		common.JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "record store unavailable", nil)
		return
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("dashboard query failed")
	}
	common.WriteError(w, err)
}
