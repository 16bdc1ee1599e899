package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/schoolwear/internal/service"
	"github.com/utafrali/schoolwear/pkg/httputil"
	"github.com/utafrali/schoolwear/pkg/validator"
)

// SessionRequest carries the token obtained from the backend's login.
type SessionRequest struct {
	Token string `json:"token" validate:"required,notblank"`
}

// SessionHandler stores the session token and signs the device out.
type SessionHandler struct {
	tokens *service.TokenStore
	cart   *service.CartStore
	logger *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(tokens *service.TokenStore, cart *service.CartStore, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{tokens: tokens, cart: cart, logger: logger}
}

// Save handles PUT /api/v1/session
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.tokens.Save(r.Context(), req.Token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/v1/session. The cart goes with the token.
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.SignOut(r.Context(), h.cart); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
