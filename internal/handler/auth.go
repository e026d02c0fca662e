package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/devdiary/internal/auth"
)

type AuthHandler struct {
	gate   *auth.Gate
	logger *slog.Logger
}

func NewAuthHandler(gate *auth.Gate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, logger: logger}
}

// Status reports whether the UI asks for a password.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"required":   h.gate.Required(),
		"enforceApi": h.gate.EnforceAPI(),
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	token, err := h.gate.Login(req.Password)
	if errors.Is(err, auth.ErrWrongPassword) {
		h.logger.Warn("login failed", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "incorrect password")
		return
	}
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token})
}
