// Package mockapi is an in-memory LaunchKart backend that serves the KYC and
// auth endpoints the client depends on. It backs cmd/kycmock and the
// end-to-end tests; adjudication is deterministic and instant.
package mockapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"launchkart/internal/auth"
	"launchkart/pkg/domain"
	"launchkart/pkg/errors"

	"github.com/google/uuid"
)

// profile is the server-side verification state of one user.
type profile struct {
	Level    domain.KYCLevel
	Status   domain.KYCStatus
	Document domain.DocumentType
	Session  *domain.FullKYCSession
}

// Store keeps accounts, KYC profiles and pending email verifications.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*auth.Account // by lower-case email
	profiles map[string]*profile      // by user id
	verify   map[string]verification  // by token
}

type verification struct {
	Email     string
	ExpiresAt time.Time
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*auth.Account),
		profiles: make(map[string]*profile),
		verify:   make(map[string]verification),
	}
}

// AddUser registers an account with a fresh, unverified KYC profile.
func (s *Store) AddUser(email, name, password string, country domain.Country, emailVerified bool) (domain.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:      uuid.NewString(),
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Name:    name,
		Country: country,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[user.Email] = &auth.Account{User: user, PasswordHash: hash, EmailVerified: emailVerified}
	s.profiles[user.ID] = &profile{Level: domain.KYCLevelNone, Status: domain.KYCStatusUnverified}
	return user, nil
}

// NewDemoStore seeds one verified founder per supported country and one
// account that still has to confirm its email.
func NewDemoStore(password string) (*Store, error) {
	s := NewStore()
	seed := []struct {
		email    string
		name     string
		country  domain.Country
		verified bool
	}{
		{"founder.in@launchkart.dev", "Asha Founder", domain.CountryIndia, true},
		{"founder.ae@launchkart.dev", "Omar Founder", domain.CountryUAE, true},
		{"pending@launchkart.dev", "Pending Founder", domain.CountryIndia, false},
	}
	for _, u := range seed {
		if _, err := s.AddUser(u.email, u.name, password, u.country, u.verified); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FindByEmail implements auth.Repository.
func (s *Store) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, errors.ErrInvalidCredentials
	}
	cp := *a
	return &cp, nil
}

func (s *Store) profile(userID string) (profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return profile{}, false
	}
	return *p, true
}

// update applies fn to the profile of userID under the write lock.
func (s *Store) update(userID string, fn func(p *profile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return errors.ErrNotAuthenticated
	}
	return fn(p)
}

func (s *Store) user(userID string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.User.ID == userID {
			return a.User, true
		}
	}
	return domain.User{}, false
}

// issueVerification returns a token for email when it belongs to an
// unverified account.
func (s *Store) issueVerification(email string, ttl time.Duration, now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || a.EmailVerified {
		return "", false
	}
	token := uuid.NewString()
	s.verify[token] = verification{Email: a.User.Email, ExpiresAt: now.Add(ttl)}
	return token, true
}

func (s *Store) confirmVerification(token string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.verify[token]
	if !ok {
		return false
	}
	delete(s.verify, token)
	if now.After(v.ExpiresAt) {
		return false
	}
	if a, ok := s.accounts[v.Email]; ok {
		a.EmailVerified = true
		return true
	}
	return false
}
