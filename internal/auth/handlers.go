package auth

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
)

// Handler exposes the login and identity endpoints.
type Handler struct {
	Service *Service
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/v1/auth/login. It accepts a JSON body or an
// OAuth2 password-grant style form.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	req, err := decodeLogin(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var appErr *common.AppError
		if !errors.As(err, &appErr) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("admin login failed")
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// Me returns the authenticated admin.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	admin, ok := common.Admin(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]string{"username": admin})
}

func decodeLogin(r *http.Request) (loginRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return loginRequest{}, err
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(loginFormMaxMemory); err != nil {
			return loginRequest{}, err
		}
	default:
		var req loginRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	return loginRequest{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}, nil
}

const loginFormMaxMemory = 64 << 10
