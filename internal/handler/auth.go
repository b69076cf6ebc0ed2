package handler

import (
	"net/http"
	"strings"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/service"
)

// AuthHandler handles the admin sign-in endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /api/admin/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		Error(w, domain.ErrBadRequest("email and password are required"))
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}
