package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-library/internal/catalog"
	"ms-library/internal/catalog/openlibrary"
	"ms-library/internal/logger"
	"ms-library/internal/models"
)

type Handler struct {
	CatalogService *catalog.Service
	Logger         *logger.Logger
}

func NewHandler(catalogService *catalog.Service, log *logger.Logger) *Handler {
	return &Handler{CatalogService: catalogService, Logger: log}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.BookFilter{
		Term:         query.Get("term"),
		Author:       query.Get("author"),
		Genre:        query.Get("genre"),
		Publisher:    query.Get("publisher"),
		OnlyInStock:  query.Get("in_stock") == "true",
		OnlyBorrowed: query.Get("borrowed") == "true",
	}
	if year := query.Get("year"); year != "" {
		filter.Year, _ = strconv.Atoi(year)
	}

	books, err := h.CatalogService.List(r.Context(), filter)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListBooks: %v", err))
		http.Error(w, "Failed to retrieve books: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(books); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListBooks: failed to encode response: %v", err))
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookId")

	book, err := h.CatalogService.Get(r.Context(), bookID)
	if err != nil {
		http.Error(w, "Book not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(book); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBook: failed to encode response: %v", err))
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBook: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	book, err := h.CatalogService.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrTitleRequired):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, catalog.ErrDuplicateBook):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.Logger.Error("API", fmt.Sprintf("CreateBook: %v", err))
			http.Error(w, "Could not create book: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(book); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBook: failed to encode response: %v", err))
	}
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookId")

	var req models.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateBook: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	book, err := h.CatalogService.Update(r.Context(), bookID, req)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrBookNotFound):
			http.Error(w, "Book not found", http.StatusNotFound)
		case errors.Is(err, catalog.ErrTitleRequired):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.Logger.Error("API", fmt.Sprintf("UpdateBook: %v", err))
			http.Error(w, "Could not update book: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(book); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateBook: failed to encode response: %v", err))
	}
}

// Delete removes a book and its reservation history. The force query
// parameter is the admin's acknowledgment.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookId")
	force := r.URL.Query().Get("force") == "true"
	h.Logger.Info("API", fmt.Sprintf("DeleteBook: bookId=%s force=%t", bookID, force))

	err := h.CatalogService.Delete(r.Context(), bookID, force)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrForceRequired):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, catalog.ErrBookNotFound):
			http.Error(w, "Book not found", http.StatusNotFound)
		default:
			h.Logger.Error("API", fmt.Sprintf("DeleteBook: %v", err))
			http.Error(w, "Could not delete book: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ISBN string `json:"isbn"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ImportBook: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	book, err := h.CatalogService.ImportByISBN(r.Context(), req.ISBN)
	if err != nil {
		switch {
		case errors.Is(err, openlibrary.ErrInvalidISBN):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, openlibrary.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, catalog.ErrDuplicateBook):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.Logger.Error("API", fmt.Sprintf("ImportBook: %v", err))
			http.Error(w, "Import failed: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(book); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ImportBook: failed to encode response: %v", err))
	}
}
