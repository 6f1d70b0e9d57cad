package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-library/internal/auth"
	"ms-library/internal/logger"
	"ms-library/internal/models"
)

type Handler struct {
	AuthService *auth.Service
	Logger      *logger.Logger
}

func NewHandler(authService *auth.Service, log *logger.Logger) *Handler {
	return &Handler{AuthService: authService, Logger: log}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Register: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNameTaken), errors.Is(err, auth.ErrEmailTaken):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, auth.ErrWeakPassword):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.Logger.Error("API", fmt.Sprintf("Register: %v", err))
			http.Error(w, "Registration failed: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(user); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Register: failed to encode response: %v", err))
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Login: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.AuthService.Login(r.Context(), req, time.Now())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Login: %v", err))
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Login: failed to encode response: %v", err))
	}
}
