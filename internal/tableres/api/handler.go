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
	"ms-library/internal/tableres"
)

type Handler struct {
	TableService   *tableres.Service
	PenaltyService *penalty.Service
	Logger         *logger.Logger
}

func NewHandler(tableService *tableres.Service, penaltyService *penalty.Service, log *logger.Logger) *Handler {
	return &Handler{
		TableService:   tableService,
		PenaltyService: penaltyService,
		Logger:         log,
	}
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.TableService.ListTables(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTables: %v", err))
		http.Error(w, "Failed to retrieve tables: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tables); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTables: failed to encode response: %v", err))
	}
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	h.Logger.Info("API", fmt.Sprintf("Reserve: userId=%s", userID))

	var req models.ReserveTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Reserve: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.PenaltyService.Gate(r.Context(), userID); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Reserve: user %s blocked: %v", userID, err))
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	resp, err := h.TableService.Reserve(r.Context(), userID, req, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, tableres.ErrInvalidTimeRange),
			errors.Is(err, tableres.ErrPastTime),
			errors.Is(err, tableres.ErrOutsideOpeningHours):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, tableres.ErrTableNotFound):
			http.Error(w, "Table not found", http.StatusNotFound)
		case errors.Is(err, tableres.ErrDuplicateUserReservation),
			errors.Is(err, tableres.ErrTableOccupied):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.Logger.Error("API", fmt.Sprintf("Reserve: %v", err))
			http.Error(w, "Could not create reservation: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Reserve: failed to encode response: %v", err))
	}
}

func (h *Handler) MarkArrived(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	h.Logger.Info("API", fmt.Sprintf("MarkArrived: reservationId=%s", reservationID))

	res, err := h.TableService.MarkArrived(r.Context(), reservationID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, tableres.ErrNotFound):
			http.Error(w, "Reservation not found", http.StatusNotFound)
		case errors.Is(err, tableres.ErrNotActive):
			http.Error(w, "Reservation is not active", http.StatusConflict)
		case errors.Is(err, tableres.ErrTooEarly):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.Logger.Error("API", fmt.Sprintf("MarkArrived: %v", err))
			http.Error(w, "Could not check in: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.Logger.Error("API", fmt.Sprintf("MarkArrived: failed to encode response: %v", err))
	}
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	userID := auth.UserIDFromContext(r.Context())
	h.Logger.Info("API", fmt.Sprintf("Cancel: reservationId=%s userId=%s", reservationID, userID))

	res, err := h.TableService.Cancel(r.Context(), reservationID, userID)
	if err != nil {
		switch {
		case errors.Is(err, tableres.ErrNotFound):
			http.Error(w, "Reservation not found", http.StatusNotFound)
		case errors.Is(err, tableres.ErrNotOwner):
			http.Error(w, "Reservation belongs to another user", http.StatusForbidden)
		case errors.Is(err, tableres.ErrNotActive):
			http.Error(w, "Reservation is not active", http.StatusConflict)
		default:
			h.Logger.Error("API", fmt.Sprintf("Cancel: %v", err))
			http.Error(w, "Could not cancel reservation: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Cancel: failed to encode response: %v", err))
	}
}

func (h *Handler) MyReservations(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	reservations, err := h.TableService.ByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("MyReservations: %v", err))
		http.Error(w, "Failed to retrieve reservations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reservations); err != nil {
		h.Logger.Error("API", fmt.Sprintf("MyReservations: failed to encode response: %v", err))
	}
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.TableService.ListAll(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListAll: %v", err))
		http.Error(w, "Failed to retrieve reservations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reservations); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListAll: failed to encode response: %v", err))
	}
}

func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	applied, err := h.TableService.SweepMissed(r.Context(), time.Now())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Sweep: %v", err))
		http.Error(w, "Sweep failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"penalized": applied}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Sweep: failed to encode response: %v", err))
	}
}
