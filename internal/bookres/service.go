package bookres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-library/internal/config"
	"ms-library/internal/logger"
	"ms-library/internal/models"
)

var (
	ErrCapacityExceeded = errors.New("active reservation limit reached")
	ErrOutOfStock       = errors.New("book is out of stock")
	ErrAlreadyReserved  = errors.New("book already reserved by this user")
	ErrBookNotFound     = errors.New("book not found")
	ErrNotFound         = errors.New("reservation not found")
	ErrAlreadyReturned  = errors.New("reservation already returned")
)

type DBLayer interface {
	ActiveCount(ctx context.Context, userID string) (int, error)
	HasActive(ctx context.Context, userID, bookID string) (bool, error)
	GetBook(ctx context.Context, bookID string) (*models.Book, error)
	// CreateReservation inserts the reservation and decrements the book's
	// copy count in one transaction. Returns ErrOutOfStock when the
	// conditional stock update matches no row.
	CreateReservation(ctx context.Context, res models.BookReservation) error
	GetReservation(ctx context.Context, id string) (*models.BookReservation, error)
	// FinishReservation updates the reservation, increments the copy count
	// and, when rec is non-nil, applies the penalty in one transaction.
	FinishReservation(ctx context.Context, res models.BookReservation, rec *models.PenaltyRecord, delta int) error
	ListOverdue(ctx context.Context, asOf time.Time) ([]models.BookReservation, error)
	// MarkOverdue flips an active reservation to overdue and applies the
	// penalty. Returns false when the status guard matched no row.
	MarkOverdue(ctx context.Context, res models.BookReservation, rec models.PenaltyRecord, delta int) (bool, error)
	ListByUser(ctx context.Context, userID string, delivered bool) ([]models.BookReservation, error)
	ListAll(ctx context.Context) ([]models.BookReservation, error)
}

type EventPublisher interface {
	PublishReservationEvent(event models.ReservationEvent) error
}

type Service struct {
	DB     DBLayer
	Kafka  EventPublisher
	Logger *logger.Logger
	Rules  config.Rules
}

func NewService(db DBLayer, kafka EventPublisher, log *logger.Logger, rules config.Rules) *Service {
	return &Service{DB: db, Kafka: kafka, Logger: log, Rules: rules}
}

// Checkout creates an active loan due in Rules.LoanDays and takes one
// copy out of stock. Insert and stock decrement commit together.
func (s *Service) Checkout(ctx context.Context, userID, bookID string, now time.Time) (*models.BookReservation, error) {
	count, err := s.DB.ActiveCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count active reservations: %w", err)
	}
	if count >= s.Rules.MaxActiveBookLoans {
		return nil, fmt.Errorf("%w (%d of %d)", ErrCapacityExceeded, count, s.Rules.MaxActiveBookLoans)
	}

	book, err := s.DB.GetBook(ctx, bookID)
	if err != nil {
		return nil, ErrBookNotFound
	}
	if book.Copies <= 0 {
		return nil, ErrOutOfStock
	}

	reserved, err := s.DB.HasActive(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing reservation: %w", err)
	}
	if reserved {
		return nil, ErrAlreadyReserved
	}

	res := models.BookReservation{
		ID:           uuid.New().String(),
		UserID:       userID,
		BookID:       bookID,
		CheckedOutAt: now,
		DueAt:        now.AddDate(0, 0, s.Rules.LoanDays),
		Status:       models.BookStatusActive,
	}

	if err := s.DB.CreateReservation(ctx, res); err != nil {
		return nil, err
	}

	s.Logger.LogReservation("CHECKOUT", res.ID, fmt.Sprintf("user %s borrowed book %s, due %s", userID, bookID, res.DueAt.Format("2006-01-02")))
	s.publish("checkout", res)
	return &res, nil
}

// Complete marks a loan returned. A loan past its due date comes back as
// penalized and costs the user Rules.PenaltyPoints; the ledger entry is
// written in the same transaction as the status change and the stock
// increment.
func (s *Service) Complete(ctx context.Context, reservationID string, now time.Time) (*models.BookReservation, error) {
	res, err := s.DB.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, ErrNotFound
	}
	if res.Delivered {
		return res, ErrAlreadyReturned
	}

	res.ReturnedAt = now
	res.Delivered = true

	var rec *models.PenaltyRecord
	delta := 0
	if now.After(res.DueAt) {
		res.Status = models.BookStatusPenalized
		delta = s.Rules.PenaltyPoints
		rec = &models.PenaltyRecord{
			ID:                uuid.New().String(),
			UserID:            res.UserID,
			Description:       "Book returned late",
			CreatedAt:         now,
			BookReservationID: res.ID,
		}
	} else {
		res.Status = models.BookStatusCompleted
	}

	if err := s.DB.FinishReservation(ctx, *res, rec, delta); err != nil {
		return nil, fmt.Errorf("failed to complete reservation %s: %w", reservationID, err)
	}

	if rec != nil {
		s.Logger.LogPenalty(res.UserID, fmt.Sprintf("+%d points: book %s returned late", delta, res.BookID))
	}
	s.Logger.LogReservation("COMPLETE", res.ID, fmt.Sprintf("status %s", res.Status))
	s.publish("complete", *res)
	return res, nil
}

// SweepOverdue penalizes every active loan whose due date has passed and
// moves it to overdue. Safe to re-run: the status guard keeps a loan
// from being penalized twice for the same overdue window.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.DB.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue reservations: %w", err)
	}

	applied := 0
	for _, res := range overdue {
		rec := models.PenaltyRecord{
			ID:                uuid.New().String(),
			UserID:            res.UserID,
			Description:       "Book not returned on time",
			CreatedAt:         now,
			BookReservationID: res.ID,
		}
		ok, err := s.DB.MarkOverdue(ctx, res, rec, s.Rules.PenaltyPoints)
		if err != nil {
			s.Logger.Error("SWEEP", fmt.Sprintf("failed to mark reservation %s overdue: %v", res.ID, err))
			continue
		}
		if !ok {
			// Another sweep got there first.
			continue
		}
		applied++
		s.Logger.LogPenalty(res.UserID, fmt.Sprintf("+%d points: book %s not returned on time", s.Rules.PenaltyPoints, res.BookID))
		s.publish("overdue", res)
	}

	if applied > 0 {
		s.Logger.LogSweep("books", fmt.Sprintf("%d reservations marked overdue", applied))
	}
	return applied, nil
}

func (s *Service) GetReservation(ctx context.Context, id string) (*models.BookReservation, error) {
	res, err := s.DB.GetReservation(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return res, nil
}

// ActiveByUser lists a user's open loans; PastByUser lists returned ones.
func (s *Service) ActiveByUser(ctx context.Context, userID string) ([]models.BookReservation, error) {
	return s.DB.ListByUser(ctx, userID, false)
}

func (s *Service) PastByUser(ctx context.Context, userID string) ([]models.BookReservation, error) {
	return s.DB.ListByUser(ctx, userID, true)
}

func (s *Service) ListAll(ctx context.Context) ([]models.BookReservation, error) {
	return s.DB.ListAll(ctx)
}

func (s *Service) publish(action string, res models.BookReservation) {
	if s.Kafka == nil {
		return
	}
	event := models.ReservationEvent{
		Kind:          "book",
		Action:        action,
		ReservationID: res.ID,
		UserID:        res.UserID,
		OccurredAt:    time.Now(),
	}
	if err := s.Kafka.PublishReservationEvent(event); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish reservation event: %v", err))
	}
}
