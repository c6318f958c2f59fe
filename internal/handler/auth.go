package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/homequest/internal/identity"
	"github.com/dukerupert/homequest/internal/middleware"
)

type AuthHandler struct {
	provider identity.Provider
	secret   []byte
	logger   *slog.Logger
}

func NewAuthHandler(provider identity.Provider, secret []byte, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, secret: secret, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ident, err := h.provider.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		// Authentication errors are surfaced verbatim.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.issueSession(w, *ident) {
		return
	}
	writeJSON(w, http.StatusCreated, ident)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ident, err := h.provider.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			status = http.StatusInternalServerError
		}
		writeError(w, status, err.Error())
		return
	}

	if !h.issueSession(w, *ident) {
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Logout(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, ident identity.Identity) bool {
	token, err := middleware.SignSession(h.secret, ident)
	if err != nil {
		h.logger.Error("sign session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(middleware.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}
