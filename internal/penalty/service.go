package penalty

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

// ErrLimitExceeded gates reservation creation when a user's total goes
// past the configured threshold.
var ErrLimitExceeded = errors.New("penalty limit exceeded")

type DBLayer interface {
	Apply(ctx context.Context, rec models.PenaltyRecord, delta int) error
	Total(ctx context.Context, userID string) (int, error)
	LatestRecordAt(ctx context.Context, userID string) (time.Time, bool, error)
	ResetTotal(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string) ([]models.PenaltyRecord, error)
}

type EventPublisher interface {
	PublishPenaltyEvent(event models.PenaltyEvent) error
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

// Add appends a ledger entry and moves the user's total by delta. Ledger
// row and total always change together; there is no path that mutates
// one without the other.
func (s *Service) Add(ctx context.Context, userID string, delta int, reason, bookResID, tableResID string) error {
	rec := models.PenaltyRecord{
		ID:                 uuid.New().String(),
		UserID:             userID,
		Description:        reason,
		CreatedAt:          time.Now(),
		BookReservationID:  bookResID,
		TableReservationID: tableResID,
	}

	if err := s.DB.Apply(ctx, rec, delta); err != nil {
		return fmt.Errorf("failed to apply penalty for user %s: %w", userID, err)
	}

	s.Logger.LogPenalty(userID, fmt.Sprintf("%+d points: %s", delta, reason))
	s.publish(models.PenaltyEvent{
		UserID:      userID,
		Delta:       delta,
		Description: reason,
		OccurredAt:  rec.CreatedAt,
	})
	return nil
}

// MaybeReset zeroes the user's total when the newest ledger entry is old
// enough (or the ledger is empty). Called at login and on profile reads,
// not from a background job. Returns the current total after the check.
func (s *Service) MaybeReset(ctx context.Context, userID string, now time.Time) (int, bool, error) {
	total, err := s.DB.Total(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read penalty total: %w", err)
	}
	if total == 0 {
		return 0, false, nil
	}

	last, ok, err := s.DB.LatestRecordAt(ctx, userID)
	if err != nil {
		return total, false, fmt.Errorf("failed to read penalty ledger: %w", err)
	}

	window := time.Duration(s.Rules.PenaltyResetDays) * 24 * time.Hour
	if ok && now.Sub(last) < window {
		return total, false, nil
	}

	if err := s.DB.ResetTotal(ctx, userID); err != nil {
		return total, false, fmt.Errorf("failed to reset penalty total: %w", err)
	}

	s.Logger.LogPenalty(userID, fmt.Sprintf("total reset to 0 (%d points cleared)", total))
	return 0, true, nil
}

// Gate rejects reservation creation for users over the threshold. The
// lifecycle services do not re-check this; the API handlers call it
// before invoking them.
func (s *Service) Gate(ctx context.Context, userID string) error {
	total, err := s.DB.Total(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read penalty total: %w", err)
	}
	if total > s.Rules.PenaltyGate {
		return fmt.Errorf("%w: %d points", ErrLimitExceeded, total)
	}
	return nil
}

func (s *Service) History(ctx context.Context, userID string) ([]models.PenaltyRecord, error) {
	return s.DB.ListByUser(ctx, userID)
}

func (s *Service) publish(event models.PenaltyEvent) {
	if s.Kafka == nil {
		return
	}
	if err := s.Kafka.PublishPenaltyEvent(event); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish penalty event: %v", err))
	}
}
