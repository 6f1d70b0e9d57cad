package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-library/internal/auth"
	"ms-library/internal/logger"
	"ms-library/internal/models"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrNameTaken     = errors.New("username already taken")
	ErrWrongPassword = errors.New("current password is incorrect")
)

type DBLayer interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	NameExists(ctx context.Context, name string) (bool, error)
	UpdateName(ctx context.Context, id, name string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type PenaltyChecker interface {
	MaybeReset(ctx context.Context, userID string, now time.Time) (int, bool, error)
}

type Service struct {
	DB      DBLayer
	Penalty PenaltyChecker
	Logger  *logger.Logger
}

func NewService(db DBLayer, penalty PenaltyChecker, log *logger.Logger) *Service {
	return &Service{DB: db, Penalty: penalty, Logger: log}
}

// Profile returns the user with a fresh penalty total. The stale-total
// reset runs here as well as at login, so a long-lived session still
// sees its points expire.
func (s *Service) Profile(ctx context.Context, userID string, now time.Time) (*models.User, bool, error) {
	user, err := s.DB.GetByID(ctx, userID)
	if err != nil {
		return nil, false, ErrNotFound
	}

	total, reset, err := s.Penalty.MaybeReset(ctx, userID, now)
	if err != nil {
		return nil, false, err
	}
	user.PenaltyPoints = total
	return user, reset, nil
}

func (s *Service) ChangeName(ctx context.Context, userID, newName string) (*models.User, error) {
	name := strings.TrimSpace(newName)
	if name == "" {
		return nil, errors.New("name cannot be empty")
	}

	user, err := s.DB.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrNotFound
	}
	if user.Name == name {
		return user, nil
	}

	taken, err := s.DB.NameExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrNameTaken
	}

	if err := s.DB.UpdateName(ctx, userID, name); err != nil {
		return nil, fmt.Errorf("failed to update username: %w", err)
	}

	s.Logger.Info("USERS", fmt.Sprintf("user %s renamed %q -> %q", userID, user.Name, name))
	user.Name = name
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if len(newPassword) < 6 {
		return auth.ErrWeakPassword
	}

	user, err := s.DB.GetByID(ctx, userID)
	if err != nil {
		return ErrNotFound
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.DB.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.Logger.Info("USERS", fmt.Sprintf("user %s changed password", userID))
	return nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.DB.ListUsers(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.DB.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// Delete removes a user account. Admin only; reservation and ledger
// rows keep their user_id for the audit trail.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.DB.GetByID(ctx, id); err != nil {
		return ErrNotFound
	}
	if err := s.DB.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.Logger.Info("USERS", fmt.Sprintf("User %s deleted", id))
	return nil
}
