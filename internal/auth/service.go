// Package auth implements both sides of the LaunchKart authentication
// collaborator: token issuance for the development backend (Service) and the
// login/resend client that fills the session (Client).
//
// ==============================================================================
// AUTH SERVICE - internal/auth/service.go
// ==============================================================================
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"launchkart/pkg/domain"
	"launchkart/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Account is a stored user with credentials.
type Account struct {
	User          domain.User
	PasswordHash  string
	EmailVerified bool
}

// Repository looks up accounts by email.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// Service verifies credentials and issues access tokens.
type Service struct {
	repo      Repository
	jwtSecret string
	jwtExpiry time.Duration
	now       func() time.Time
}

// NewService constructs a Service with the given repository and JWT settings.
func NewService(repo Repository, jwtSecret string, jwtExpiry time.Duration) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		now:       time.Now,
	}
}

// ErrEmailNotVerified is returned by Login for accounts that never confirmed
// their address.
var ErrEmailNotVerified = fmt.Errorf("%w: email not verified", errors.ErrInvalidCredentials)

// Login authenticates a user and returns a token.
func (s *Service) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}
	if !account.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	token, _, err := s.IssueToken(account.User)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        account.User,
	}, nil
}

// IssueToken signs an HS256 access token for user.
func (s *Service) IssueToken(user domain.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"country": string(user.Country),
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
