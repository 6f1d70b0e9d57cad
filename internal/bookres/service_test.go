package bookres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-library/internal/bookres"
	"ms-library/internal/config"
	"ms-library/internal/logger"
	"ms-library/internal/models"
)

// Mock implementations
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) ActiveCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockDBLayer) HasActive(ctx context.Context, userID, bookID string) (bool, error) {
	args := m.Called(ctx, userID, bookID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockDBLayer) CreateReservation(ctx context.Context, res models.BookReservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *MockDBLayer) GetReservation(ctx context.Context, id string) (*models.BookReservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookReservation), args.Error(1)
}

func (m *MockDBLayer) FinishReservation(ctx context.Context, res models.BookReservation, rec *models.PenaltyRecord, delta int) error {
	args := m.Called(ctx, res, rec, delta)
	return args.Error(0)
}

func (m *MockDBLayer) ListOverdue(ctx context.Context, asOf time.Time) ([]models.BookReservation, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookReservation), args.Error(1)
}

func (m *MockDBLayer) MarkOverdue(ctx context.Context, res models.BookReservation, rec models.PenaltyRecord, delta int) (bool, error) {
	args := m.Called(ctx, res, rec, delta)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) ListByUser(ctx context.Context, userID string, delivered bool) ([]models.BookReservation, error) {
	args := m.Called(ctx, userID, delivered)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookReservation), args.Error(1)
}

func (m *MockDBLayer) ListAll(ctx context.Context) ([]models.BookReservation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookReservation), args.Error(1)
}

func newTestService(db *MockDBLayer) *bookres.Service {
	return bookres.NewService(db, nil, logger.NewLogger(), config.Load().Rules)
}

func TestCheckoutSuccess(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	db.On("ActiveCount", mock.Anything, "user1").Return(2, nil)
	db.On("GetBook", mock.Anything, "book1").Return(&models.Book{ID: "book1", Copies: 3}, nil)
	db.On("HasActive", mock.Anything, "user1", "book1").Return(false, nil)
	db.On("CreateReservation", mock.Anything, mock.MatchedBy(func(res models.BookReservation) bool {
		return res.UserID == "user1" &&
			res.BookID == "book1" &&
			res.Status == models.BookStatusActive &&
			!res.Delivered &&
			res.DueAt.Equal(now.AddDate(0, 0, 14))
	})).Return(nil)

	res, err := svc.Checkout(context.Background(), "user1", "book1", now)
	assert.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, models.BookStatusActive, res.Status)
	db.AssertExpectations(t)
}

func TestCheckoutCapacityExceeded(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	db.On("ActiveCount", mock.Anything, "user1").Return(5, nil)

	_, err := svc.Checkout(context.Background(), "user1", "book1", time.Now())
	assert.ErrorIs(t, err, bookres.ErrCapacityExceeded)
	db.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestCheckoutOutOfStock(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	db.On("ActiveCount", mock.Anything, "user1").Return(0, nil)
	db.On("GetBook", mock.Anything, "book1").Return(&models.Book{ID: "book1", Copies: 0}, nil)

	_, err := svc.Checkout(context.Background(), "user1", "book1", time.Now())
	assert.ErrorIs(t, err, bookres.ErrOutOfStock)
	db.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestCheckoutDuplicate(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	db.On("ActiveCount", mock.Anything, "user1").Return(1, nil)
	db.On("GetBook", mock.Anything, "book1").Return(&models.Book{ID: "book1", Copies: 2}, nil)
	db.On("HasActive", mock.Anything, "user1", "book1").Return(true, nil)

	_, err := svc.Checkout(context.Background(), "user1", "book1", time.Now())
	assert.ErrorIs(t, err, bookres.ErrAlreadyReserved)
}

func TestCompleteOnTime(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	db.On("GetReservation", mock.Anything, "res1").Return(&models.BookReservation{
		ID:     "res1",
		UserID: "user1",
		BookID: "book1",
		DueAt:  now.AddDate(0, 0, 3),
		Status: models.BookStatusActive,
	}, nil)
	db.On("FinishReservation", mock.Anything, mock.MatchedBy(func(res models.BookReservation) bool {
		return res.Status == models.BookStatusCompleted && res.Delivered && res.ReturnedAt.Equal(now)
	}), (*models.PenaltyRecord)(nil), 0).Return(nil)

	res, err := svc.Complete(context.Background(), "res1", now)
	assert.NoError(t, err)
	assert.Equal(t, models.BookStatusCompleted, res.Status)
	db.AssertExpectations(t)
}

func TestCompleteLateIsPenalized(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	db.On("GetReservation", mock.Anything, "res1").Return(&models.BookReservation{
		ID:     "res1",
		UserID: "user1",
		BookID: "book1",
		DueAt:  now.AddDate(0, 0, -2),
		Status: models.BookStatusOverdue,
	}, nil)
	db.On("FinishReservation", mock.Anything, mock.MatchedBy(func(res models.BookReservation) bool {
		return res.Status == models.BookStatusPenalized && res.Delivered
	}), mock.MatchedBy(func(rec *models.PenaltyRecord) bool {
		return rec != nil && rec.UserID == "user1" && rec.BookReservationID == "res1"
	}), 5).Return(nil)

	res, err := svc.Complete(context.Background(), "res1", now)
	assert.NoError(t, err)
	assert.Equal(t, models.BookStatusPenalized, res.Status)
	db.AssertExpectations(t)
}

func TestCompleteAlreadyReturned(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)

	db.On("GetReservation", mock.Anything, "res1").Return(&models.BookReservation{
		ID:        "res1",
		Status:    models.BookStatusCompleted,
		Delivered: true,
	}, nil)

	_, err := svc.Complete(context.Background(), "res1", time.Now())
	assert.ErrorIs(t, err, bookres.ErrAlreadyReturned)
	db.AssertNotCalled(t, "FinishReservation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepOverdue(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)
	now := time.Now()

	overdue := []models.BookReservation{
		{ID: "res1", UserID: "user1", BookID: "book1", Status: models.BookStatusActive},
		{ID: "res2", UserID: "user2", BookID: "book2", Status: models.BookStatusActive},
	}
	db.On("ListOverdue", mock.Anything, now).Return(overdue, nil)
	db.On("MarkOverdue", mock.Anything, overdue[0], mock.Anything, 5).Return(true, nil)
	db.On("MarkOverdue", mock.Anything, overdue[1], mock.Anything, 5).Return(true, nil)

	applied, err := svc.SweepOverdue(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 2, applied)
}

func TestSweepOverdueIdempotent(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db)
	now := time.Now()

	// The guard catches a reservation another sweep already handled.
	overdue := []models.BookReservation{
		{ID: "res1", UserID: "user1", BookID: "book1", Status: models.BookStatusActive},
	}
	db.On("ListOverdue", mock.Anything, now).Return(overdue, nil)
	db.On("MarkOverdue", mock.Anything, overdue[0], mock.Anything, 5).Return(false, nil)

	applied, err := svc.SweepOverdue(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 0, applied)
}
