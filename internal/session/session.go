// Package session holds the authenticated user and bearer token on behalf of
// the KYC client. It is the only place credentials live; callers attach them to
// outgoing requests through Manager.Authorize.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"launchkart/pkg/domain"
	"launchkart/pkg/errors"
	"launchkart/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the transient authenticated state of one user.
type Session struct {
	Token     string      `json:"token"`
	User      domain.User `json:"user"`
	LastEmail string      `json:"last_email,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Expired reports whether the token lifetime has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists a single session.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// Manager mediates all access to the session store.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

// NewManager creates a Manager. ttl bounds sessions whose token carries no expiry.
func NewManager(store Store, ttl time.Duration, log logger.Logger) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		store:  store,
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
}

// Start records a freshly issued token for user.
func (m *Manager) Start(ctx context.Context, token string, user domain.User) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.ErrNotAuthenticated
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	if exp, ok := TokenExpiry(token); ok && exp.Before(expiresAt) {
		expiresAt = exp
	}
	if !expiresAt.After(now) {
		return nil, errors.ErrSessionExpired
	}

	s := &Session{
		Token:     token,
		User:      user,
		LastEmail: user.Email,
		ExpiresAt: expiresAt,
	}
	if err := m.store.Save(ctx, s, expiresAt.Sub(now)); err != nil {
		return nil, errors.Wrap(err, "failed to save session")
	}

	m.logger.Info("Session started", map[string]interface{}{
		"user_id":    user.ID,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
	return s, nil
}

// Current returns the active session, clearing it when it has expired.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	s, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			return nil, errors.ErrNotAuthenticated
		}
		return nil, err
	}
	if s.Expired(m.now()) {
		m.logger.Info("Session expired", map[string]interface{}{"user_id": s.User.ID})
		_ = m.store.Delete(ctx)
		return nil, errors.ErrSessionExpired
	}
	return s, nil
}

// RememberEmail records the address last used by an auth flow so that later
// flows (verification resend) can reuse it without global state.
func (m *Manager) RememberEmail(ctx context.Context, email string) error {
	s, err := m.store.Load(ctx)
	if errors.Is(err, errors.ErrSessionNotFound) {
		// Not logged in yet: keep an anonymous session carrying only the email.
		s = &Session{}
	} else if err != nil {
		return err
	}
	s.LastEmail = strings.TrimSpace(email)

	ttl := m.ttl
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(m.now())
		if ttl <= 0 {
			return errors.ErrSessionExpired
		}
	}
	return m.store.Save(ctx, s, ttl)
}

// LastEmail returns the remembered email, if any.
func (m *Manager) LastEmail(ctx context.Context) (string, error) {
	s, err := m.store.Load(ctx)
	if errors.Is(err, errors.ErrSessionNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.LastEmail, nil
}

// Clear logs the user out.
func (m *Manager) Clear(ctx context.Context) error {
	return m.store.Delete(ctx)
}

// Authorize attaches the bearer credential of the current session to req.
func (m *Manager) Authorize(req *http.Request) error {
	s, err := m.Current(req.Context())
	if err != nil {
		return err
	}
	if s.Token == "" {
		return errors.ErrNotAuthenticated
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	return nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature;
// the client has no key and only needs the expiry for housekeeping.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
