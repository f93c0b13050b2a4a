package shipment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
)

// ReadingInput is the JSON body for analyze and submit. Pointers let a missing
// field fail "required" instead of silently reading as zero.
type ReadingInput struct {
	PH          *float64 `json:"ph" validate:"required,gte=0,lte=14"`
	Temperature *float64 `json:"temperature" validate:"required,gte=-50,lte=100"`
	Weight      *float64 `json:"weight" validate:"required,gt=0"`
}

type submitInput struct {
	ReadingInput
	VendorID *int64 `json:"vendor_id" validate:"required,gt=0"`
}

// Handler exposes the decision pipeline over HTTP.
type Handler struct {
	Svc *Service
}

// Analyze scores and prices a reading without recording it.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "shipment service not configured", nil)
		return
	}
	var in ReadingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.ValidateStruct(in); err != nil {
		common.WriteError(w, err)
		return
	}
	decision := h.Svc.Analyze(Reading{PH: *in.PH, Temperature: *in.Temperature, Weight: *in.Weight})
	common.Data(w, http.StatusOK, decision)
}

// Submit records a shipment for a vendor.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "shipment service not configured", nil)
		return
	}
	var in submitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.ValidateStruct(in); err != nil {
		common.WriteError(w, err)
		return
	}
	saved, err := h.Svc.Submit(r.Context(), Reading{
		VendorID:    *in.VendorID,
		PH:          *in.PH,
		Temperature: *in.Temperature,
		Weight:      *in.Weight,
	})
	if err != nil {
		var appErr *common.AppError
		if !errors.As(err, &appErr) || appErr.HTTPStatus >= http.StatusInternalServerError {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("submit shipment failed")
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, saved)
}
