package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/security/auth"
)

const (
	DemoEmail    = "demo@demo.com"
	DemoName     = "Demo User"
	DemoPassword = "Abc!123"
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo domain.UserRepository, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// Session is returned by Register and Login.
type Session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expires_in"` // seconds
	TokenType string       `json:"token_type"`
}

func (s *AuthService) session(u *domain.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(u.ID, u.Email, u.Name)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}
	return &Session{
		User:      u,
		Token:     token,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
		TokenType: "Bearer",
	}, nil
}

// Register creates a new user account and signs it in.
func (s *AuthService) Register(ctx context.Context, in domain.CreateUserInput) (*Session, error) {
	u, err := s.userRepo.Create(ctx, in)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			s.logger.Info("registration with existing email", slog.String("email", domain.NormalizeEmail(in.Email)))
		}
		return nil, err
	}

	s.logger.Info("user registered", slog.Int64("user_id", u.ID), slog.String("email", u.Email))
	return s.session(u)
}

// Login authenticates a user. Unknown email and wrong password produce the
// same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with non-existent email", slog.String("email", domain.NormalizeEmail(email)))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.VerifyPassword(password, u.PasswordHash) {
		s.logger.Info("login failed with wrong password", slog.Int64("user_id", u.ID))
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info("user logged in", slog.Int64("user_id", u.ID), slog.String("email", u.Email))
	return s.session(u)
}

// Me returns the user behind a token's claims.
func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ChangePassword verifies the current password and stores a new one that
// passes the password policy.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(oldPassword, u.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, newPassword); err != nil {
		return err
	}
	s.logger.Info("user changed password", slog.Int64("user_id", userID))
	return nil
}

// SeedDemoUser creates the demo account when it does not exist yet.
func (s *AuthService) SeedDemoUser(ctx context.Context) error {
	_, err := s.userRepo.GetByEmail(ctx, DemoEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	u, err := s.userRepo.Create(ctx, domain.CreateUserInput{Email: DemoEmail, Name: DemoName, Password: DemoPassword})
	if err != nil && !errors.Is(err, domain.ErrDuplicateEmail) {
		return fmt.Errorf("seed demo user: %w", err)
	}
	if u != nil {
		s.logger.Info("demo user created", slog.Int64("user_id", u.ID))
	}
	return nil
}
