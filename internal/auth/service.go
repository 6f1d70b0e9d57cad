package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-library/internal/config"
	"ms-library/internal/logger"
	"ms-library/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNameTaken          = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

type DBLayer interface {
	CreateUser(ctx context.Context, user models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	NameExists(ctx context.Context, name string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// PenaltyChecker is the slice of the penalty service login needs: the
// stale-total reset that runs on every successful sign-in.
type PenaltyChecker interface {
	MaybeReset(ctx context.Context, userID string, now time.Time) (int, bool, error)
}

type Service struct {
	DB      DBLayer
	Penalty PenaltyChecker
	Logger  *logger.Logger
	Config  config.AuthConfig
}

func NewService(db DBLayer, penalty PenaltyChecker, log *logger.Logger, cfg config.AuthConfig) *Service {
	return &Service{DB: db, Penalty: penalty, Logger: log, Config: cfg}
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}
	if len(req.Password) < 6 {
		return nil, ErrWeakPassword
	}

	taken, err := s.DB.NameExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrNameTaken
	}

	taken, err = s.DB.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.Logger.Info("AUTH", fmt.Sprintf("registered user %s (%s)", user.Name, user.ID))
	return &user, nil
}

// Login verifies credentials, runs the stale-penalty reset and issues a
// session token. Legacy SHA-256 hashes are upgraded to bcrypt in place
// once the password checks out.
func (s *Service) Login(ctx context.Context, req models.LoginRequest, now time.Time) (*models.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.DB.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(user.PasswordHash, req.Password) {
		s.Logger.Warn("AUTH", fmt.Sprintf("failed login for %s", email))
		return nil, ErrInvalidCredentials
	}

	if IsLegacyHash(user.PasswordHash) {
		if hash, err := HashPassword(req.Password); err == nil {
			if err := s.DB.UpdatePassword(ctx, user.ID, hash); err != nil {
				s.Logger.Warn("AUTH", fmt.Sprintf("failed to upgrade legacy hash for %s: %v", user.ID, err))
			}
		}
	}

	total, reset, err := s.Penalty.MaybeReset(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}
	user.PenaltyPoints = total

	token, err := IssueToken(s.Config.JWTSecret, user.ID, user.Name, user.Role, s.Config.TokenValidity)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	resp := &models.LoginResponse{
		Token:         token,
		User:          user,
		PenaltyPoints: total,
		PenaltyReset:  reset,
	}
	if reset {
		resp.Notice = "Your penalty points have been reset."
	}

	s.Logger.Info("AUTH", fmt.Sprintf("user %s logged in", user.ID))
	return resp, nil
}
