package agent

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/store"
)

type askRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// Handler exposes the assistant endpoint.
type Handler struct {
	Svc *Service
}

// Ask handles POST /api/v1/agent/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	answer, err := h.Svc.Ask(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			common.JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "record store unavailable", nil)
			return
		}
		var appErr *common.AppError
		if !errors.As(err, &appErr) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("agent ask failed")
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, answer)
}
