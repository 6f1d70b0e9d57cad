package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-library/internal/auth"
	"ms-library/internal/bookres"
	"ms-library/internal/logger"
	"ms-library/internal/models"
	"ms-library/internal/penalty"
)

type Handler struct {
	BookService    *bookres.Service
	PenaltyService *penalty.Service
	Logger         *logger.Logger
}

func NewHandler(bookService *bookres.Service, penaltyService *penalty.Service, log *logger.Logger) *Handler {
	return &Handler{
		BookService:    bookService,
		PenaltyService: penaltyService,
		Logger:         log,
	}
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	h.Logger.Info("API", fmt.Sprintf("Checkout: userId=%s", userID))

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.BookID == "" {
		http.Error(w, "Book ID is required", http.StatusBadRequest)
		return
	}

	if err := h.PenaltyService.Gate(r.Context(), userID); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Checkout: user %s blocked: %v", userID, err))
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	res, err := h.BookService.Checkout(r.Context(), userID, req.BookID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, bookres.ErrBookNotFound):
			http.Error(w, "Book not found", http.StatusNotFound)
		case errors.Is(err, bookres.ErrCapacityExceeded),
			errors.Is(err, bookres.ErrOutOfStock),
			errors.Is(err, bookres.ErrAlreadyReserved):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.Logger.Error("API", fmt.Sprintf("Checkout: %v", err))
			http.Error(w, "Could not create reservation: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: failed to encode response: %v", err))
	}
}

// Return marks a loan as returned. Admin only: returns are confirmed at
// the desk, not by the borrower.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	h.Logger.Info("API", fmt.Sprintf("Return: reservationId=%s", reservationID))

	res, err := h.BookService.Complete(r.Context(), reservationID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, bookres.ErrNotFound):
			http.Error(w, "Reservation not found", http.StatusNotFound)
		case errors.Is(err, bookres.ErrAlreadyReturned):
			http.Error(w, "Reservation already returned", http.StatusConflict)
		default:
			h.Logger.Error("API", fmt.Sprintf("Return: %v", err))
			http.Error(w, "Could not complete reservation: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Return: failed to encode response: %v", err))
	}
}

func (h *Handler) MyActive(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	reservations, err := h.BookService.ActiveByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("MyActive: %v", err))
		http.Error(w, "Failed to retrieve reservations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reservations); err != nil {
		h.Logger.Error("API", fmt.Sprintf("MyActive: failed to encode response: %v", err))
	}
}

func (h *Handler) MyHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	reservations, err := h.BookService.PastByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("MyHistory: %v", err))
		http.Error(w, "Failed to retrieve reservations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reservations); err != nil {
		h.Logger.Error("API", fmt.Sprintf("MyHistory: failed to encode response: %v", err))
	}
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.BookService.ListAll(r.Context())
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

// Sweep lets an admin run the overdue pass on demand, ahead of the
// scheduled job.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	applied, err := h.BookService.SweepOverdue(r.Context(), time.Now())
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
