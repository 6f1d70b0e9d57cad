package tableres

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
	ErrInvalidTimeRange         = errors.New("end time must be after start time")
	ErrPastTime                 = errors.New("reservation starts in the past")
	ErrOutsideOpeningHours      = errors.New("reservation outside opening hours")
	ErrDuplicateUserReservation = errors.New("user already has an active table reservation")
	ErrTableOccupied            = errors.New("table is occupied for that time range")
	ErrTableNotFound            = errors.New("table not found")
	ErrNotFound                 = errors.New("reservation not found")
	ErrNotActive                = errors.New("reservation is not active")
	ErrNotOwner                 = errors.New("reservation belongs to another user")
	ErrTooEarly                 = errors.New("too early to check in")
)

type DBLayer interface {
	GetTable(ctx context.Context, id string) (*models.Table, error)
	ListTables(ctx context.Context) ([]models.Table, error)
	HasActiveForUser(ctx context.Context, userID string) (bool, error)
	OverlapExists(ctx context.Context, tableID string, start, end time.Time) (bool, error)
	// CreateReservation re-checks the overlap inside the transaction and
	// returns ErrTableOccupied when another reservation slipped in.
	CreateReservation(ctx context.Context, res models.TableReservation) error
	GetReservation(ctx context.Context, id string) (*models.TableReservation, error)
	// SetStatus moves an active reservation to status. Returns false when
	// the reservation has already left active.
	SetStatus(ctx context.Context, id, status string, cancelled bool) (bool, error)
	ListMissed(ctx context.Context, asOf time.Time) ([]models.TableReservation, error)
	// PenalizeReservation marks a missed reservation penalized and applies
	// the penalty in one transaction. Returns false when the status guard
	// matched no row.
	PenalizeReservation(ctx context.Context, res models.TableReservation, rec models.PenaltyRecord, delta int) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.TableReservation, error)
	ListAll(ctx context.Context) ([]models.TableReservation, error)
}

// HoldStore is the Redis hold guarding the check-then-insert race on a
// table slot.
type HoldStore interface {
	Acquire(ctx context.Context, tableID string, start time.Time, owner string) (bool, error)
	Release(ctx context.Context, tableID string, start time.Time, owner string) error
}

type QRGenerator interface {
	GenerateEncryptedQR(res models.TableReservation) ([]byte, error)
}

type EventPublisher interface {
	PublishReservationEvent(event models.ReservationEvent) error
}

type Service struct {
	DB     DBLayer
	Holds  HoldStore
	QR     QRGenerator
	Kafka  EventPublisher
	Logger *logger.Logger
	Rules  config.Rules
}

func NewService(db DBLayer, holds HoldStore, qr QRGenerator, kafka EventPublisher, log *logger.Logger, rules config.Rules) *Service {
	return &Service{DB: db, Holds: holds, QR: qr, Kafka: kafka, Logger: log, Rules: rules}
}

// Reserve books a table slot for the user. The overlap check runs twice:
// once up front for a fast answer, and again inside the insert
// transaction under the Redis hold, so two racing requests for the same
// slot cannot both land.
func (s *Service) Reserve(ctx context.Context, userID string, req models.ReserveTableRequest, now time.Time) (*models.TableReservationResponse, error) {
	start, end, err := s.parseWindow(req)
	if err != nil {
		return nil, err
	}
	if !start.After(now) {
		return nil, ErrPastTime
	}

	if _, err := s.DB.GetTable(ctx, req.TableID); err != nil {
		return nil, ErrTableNotFound
	}

	busy, err := s.DB.HasActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check user reservations: %w", err)
	}
	if busy {
		return nil, ErrDuplicateUserReservation
	}

	occupied, err := s.DB.OverlapExists(ctx, req.TableID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to check table availability: %w", err)
	}
	if occupied {
		return nil, ErrTableOccupied
	}

	res := models.TableReservation{
		ID:        uuid.New().String(),
		UserID:    userID,
		TableID:   req.TableID,
		StartsAt:  start,
		EndsAt:    end,
		Status:    models.TableStatusActive,
		CreatedAt: now,
	}

	held, err := s.Holds.Acquire(ctx, req.TableID, start, res.ID)
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, ErrTableOccupied
	}
	defer func() {
		if err := s.Holds.Release(ctx, req.TableID, start, res.ID); err != nil {
			s.Logger.Warn("REDIS", fmt.Sprintf("failed to release hold for table %s: %v", req.TableID, err))
		}
	}()

	code, err := s.QR.GenerateEncryptedQR(res)
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation QR: %w", err)
	}
	res.QRCode = code

	if err := s.DB.CreateReservation(ctx, res); err != nil {
		return nil, err
	}

	s.Logger.LogReservation("RESERVE", res.ID, fmt.Sprintf("user %s reserved table %s %s-%s",
		userID, req.TableID, start.Format("2006-01-02 15:04"), end.Format("15:04")))
	s.publish("reserve", res)

	return &models.TableReservationResponse{Reservation: &res, QRCode: code}, nil
}

// MarkArrived confirms the user showed up and closes the reservation.
func (s *Service) MarkArrived(ctx context.Context, reservationID string, now time.Time) (*models.TableReservation, error) {
	res, err := s.DB.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, ErrNotFound
	}
	if res.Status != models.TableStatusActive {
		return nil, ErrNotActive
	}
	if now.Before(res.StartsAt) {
		return nil, fmt.Errorf("%w: reservation starts at %s", ErrTooEarly, res.StartsAt.Format("15:04"))
	}

	ok, err := s.DB.SetStatus(ctx, res.ID, models.TableStatusCompleted, false)
	if err != nil {
		return nil, fmt.Errorf("failed to complete reservation %s: %w", reservationID, err)
	}
	if !ok {
		return nil, ErrNotActive
	}

	res.Status = models.TableStatusCompleted
	s.Logger.LogReservation("ARRIVED", res.ID, fmt.Sprintf("user %s checked in at table %s", res.UserID, res.TableID))
	s.publish("arrived", *res)
	return res, nil
}

// Cancel withdraws the user's own active reservation. No penalty; the
// slot's hold is released so the table frees up immediately.
func (s *Service) Cancel(ctx context.Context, reservationID, userID string) (*models.TableReservation, error) {
	res, err := s.DB.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, ErrNotFound
	}
	if res.UserID != userID {
		return nil, ErrNotOwner
	}
	if res.Status != models.TableStatusActive {
		return nil, ErrNotActive
	}

	ok, err := s.DB.SetStatus(ctx, res.ID, models.TableStatusCancelled, true)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reservation %s: %w", reservationID, err)
	}
	if !ok {
		return nil, ErrNotActive
	}

	if err := s.Holds.Release(ctx, res.TableID, res.StartsAt, res.ID); err != nil {
		s.Logger.Warn("REDIS", fmt.Sprintf("failed to release hold for table %s: %v", res.TableID, err))
	}

	res.Status = models.TableStatusCancelled
	res.Cancelled = true
	s.Logger.LogReservation("CANCEL", res.ID, fmt.Sprintf("user %s cancelled table %s", userID, res.TableID))
	s.publish("cancel", *res)
	return res, nil
}

// SweepMissed penalizes active reservations whose window has ended
// without a check-in. Safe to re-run.
func (s *Service) SweepMissed(ctx context.Context, now time.Time) (int, error) {
	missed, err := s.DB.ListMissed(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list missed reservations: %w", err)
	}

	applied := 0
	for _, res := range missed {
		rec := models.PenaltyRecord{
			ID:                 uuid.New().String(),
			UserID:             res.UserID,
			Description:        "Table reservation missed",
			CreatedAt:          now,
			TableReservationID: res.ID,
		}
		ok, err := s.DB.PenalizeReservation(ctx, res, rec, s.Rules.PenaltyPoints)
		if err != nil {
			s.Logger.Error("SWEEP", fmt.Sprintf("failed to penalize reservation %s: %v", res.ID, err))
			continue
		}
		if !ok {
			continue
		}
		applied++
		s.Logger.LogPenalty(res.UserID, fmt.Sprintf("+%d points: table reservation %s missed", s.Rules.PenaltyPoints, res.ID))
		s.publish("missed", res)
	}

	if applied > 0 {
		s.Logger.LogSweep("tables", fmt.Sprintf("%d reservations penalized", applied))
	}
	return applied, nil
}

func (s *Service) ListTables(ctx context.Context) ([]models.Table, error) {
	return s.DB.ListTables(ctx)
}

func (s *Service) ByUser(ctx context.Context, userID string) ([]models.TableReservation, error) {
	return s.DB.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]models.TableReservation, error) {
	return s.DB.ListAll(ctx)
}

func (s *Service) GetReservation(ctx context.Context, id string) (*models.TableReservation, error) {
	res, err := s.DB.GetReservation(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return res, nil
}

// parseWindow turns the request's date plus wall-clock times into
// concrete timestamps and validates the range.
func (s *Service) parseWindow(req models.ReserveTableRequest) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidTimeRange, req.Date)
	}
	startClock, err := time.Parse("15:04", req.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad start time %q", ErrInvalidTimeRange, req.Start)
	}
	endClock, err := time.Parse("15:04", req.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad end time %q", ErrInvalidTimeRange, req.End)
	}

	start := day.Add(time.Duration(startClock.Hour())*time.Hour + time.Duration(startClock.Minute())*time.Minute)
	end := day.Add(time.Duration(endClock.Hour())*time.Hour + time.Duration(endClock.Minute())*time.Minute)

	if !end.After(start) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	if startClock.Hour() < s.Rules.ReservationOpenHour || endClock.Hour() > s.Rules.ReservationLastHour {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: open %02d:00-%02d:00",
			ErrOutsideOpeningHours, s.Rules.ReservationOpenHour, s.Rules.ReservationLastHour)
	}
	return start, end, nil
}

func (s *Service) publish(action string, res models.TableReservation) {
	if s.Kafka == nil {
		return
	}
	event := models.ReservationEvent{
		Kind:          "table",
		Action:        action,
		ReservationID: res.ID,
		UserID:        res.UserID,
		OccurredAt:    time.Now(),
	}
	if err := s.Kafka.PublishReservationEvent(event); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish reservation event: %v", err))
	}
}
