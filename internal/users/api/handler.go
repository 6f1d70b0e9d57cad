package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-library/internal/auth"
	"ms-library/internal/logger"
	"ms-library/internal/models"
	"ms-library/internal/penalty"
	"ms-library/internal/users"
)

type Handler struct {
	UserService    *users.Service
	PenaltyService *penalty.Service
	Logger         *logger.Logger
}

func NewHandler(userService *users.Service, penaltyService *penalty.Service, log *logger.Logger) *Handler {
	return &Handler{
		UserService:    userService,
		PenaltyService: penaltyService,
		Logger:         log,
	}
}

type profileResponse struct {
	User         *models.User `json:"user"`
	PenaltyReset bool         `json:"penalty_reset"`
	Notice       string       `json:"notice,omitempty"`
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	user, reset, err := h.UserService.Profile(r.Context(), userID, time.Now())
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Profile: %v", err))
		http.Error(w, "Failed to load profile: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := profileResponse{User: user, PenaltyReset: reset}
	if reset {
		resp.Notice = "Your penalty points have been reset."
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Profile: failed to encode response: %v", err))
	}
}

func (h *Handler) ChangeName(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req models.ChangeNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ChangeName: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.UserService.ChangeName(r.Context(), userID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrNameTaken):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, users.ErrNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		default:
			h.Logger.Error("API", fmt.Sprintf("ChangeName: %v", err))
			http.Error(w, "Could not change username: "+err.Error(), http.StatusBadRequest)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(user); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ChangeName: failed to encode response: %v", err))
	}
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ChangePassword: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.UserService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrWrongPassword):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, auth.ErrWeakPassword):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, users.ErrNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		default:
			h.Logger.Error("API", fmt.Sprintf("ChangePassword: %v", err))
			http.Error(w, "Could not change password: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PenaltyHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	records, err := h.PenaltyService.History(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PenaltyHistory: %v", err))
		http.Error(w, "Failed to retrieve penalty history: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PenaltyHistory: failed to encode response: %v", err))
	}
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.UserService.List(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListUsers: %v", err))
		http.Error(w, "Failed to retrieve users: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListUsers: failed to encode response: %v", err))
	}
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	if err := h.UserService.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("DeleteUser: %v", err))
		http.Error(w, "Failed to delete user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
