package penalty_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-library/internal/config"
	"ms-library/internal/logger"
	"ms-library/internal/models"
	"ms-library/internal/penalty"
)

// Mock implementations
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) Apply(ctx context.Context, rec models.PenaltyRecord, delta int) error {
	args := m.Called(ctx, rec, delta)
	return args.Error(0)
}

func (m *MockDBLayer) Total(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockDBLayer) LatestRecordAt(ctx context.Context, userID string) (time.Time, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockDBLayer) ResetTotal(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockDBLayer) ListByUser(ctx context.Context, userID string) ([]models.PenaltyRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PenaltyRecord), args.Error(1)
}

func newTestService(db *MockDBLayer) *penalty.Service {
	return penalty.NewService(db, nil, logger.NewLogger(), config.Load().Rules)
}

func TestAddPairsLedgerAndTotal(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	db.On("Apply", mock.Anything, mock.MatchedBy(func(rec models.PenaltyRecord) bool {
		return rec.UserID == "user1" &&
			rec.Description == "Book returned late" &&
			rec.BookReservationID == "res1" &&
			rec.ID != ""
	}), 5).Return(nil)

	err := svc.Add(context.Background(), "user1", 5, "Book returned late", "res1", "")
	assert.NoError(t, err)
	db.AssertExpectations(t)
}

func TestMaybeResetClearsStaleTotal(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	db.On("Total", mock.Anything, "user1").Return(15, nil)
	db.On("LatestRecordAt", mock.Anything, "user1").
		Return(time.Now().Add(-11*24*time.Hour), true, nil)
	db.On("ResetTotal", mock.Anything, "user1").Return(nil)

	total, reset, err := svc.MaybeReset(context.Background(), "user1", time.Now())
	assert.NoError(t, err)
	assert.True(t, reset)
	assert.Equal(t, 0, total)
	db.AssertExpectations(t)
}

func TestMaybeResetKeepsRecentTotal(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	db.On("Total", mock.Anything, "user1").Return(15, nil)
	db.On("LatestRecordAt", mock.Anything, "user1").
		Return(time.Now().Add(-5*24*time.Hour), true, nil)

	total, reset, err := svc.MaybeReset(context.Background(), "user1", time.Now())
	assert.NoError(t, err)
	assert.False(t, reset)
	assert.Equal(t, 15, total)
	db.AssertNotCalled(t, "ResetTotal", mock.Anything, mock.Anything)
}

func TestMaybeResetZeroTotalIsNoop(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	db.On("Total", mock.Anything, "user1").Return(0, nil)

	total, reset, err := svc.MaybeReset(context.Background(), "user1", time.Now())
	assert.NoError(t, err)
	assert.False(t, reset)
	assert.Equal(t, 0, total)
	db.AssertNotCalled(t, "LatestRecordAt", mock.Anything, mock.Anything)
}

func TestMaybeResetWithEmptyLedger(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	// A non-zero total with no ledger rows backing it gets cleared.
	db.On("Total", mock.Anything, "user1").Return(7, nil)
	db.On("LatestRecordAt", mock.Anything, "user1").Return(time.Time{}, false, nil)
	db.On("ResetTotal", mock.Anything, "user1").Return(nil)

	total, reset, err := svc.MaybeReset(context.Background(), "user1", time.Now())
	assert.NoError(t, err)
	assert.True(t, reset)
	assert.Equal(t, 0, total)
}

func TestGate(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	db.On("Total", mock.Anything, "blocked").Return(11, nil)
	db.On("Total", mock.Anything, "allowed").Return(10, nil)

	err := svc.Gate(context.Background(), "blocked")
	assert.ErrorIs(t, err, penalty.ErrLimitExceeded)

	// Exactly at the threshold still passes; the gate fires above it.
	err = svc.Gate(context.Background(), "allowed")
	assert.NoError(t, err)
}
