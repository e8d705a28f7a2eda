package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"launchkart/pkg/cache"
	"launchkart/pkg/domain"
	"launchkart/pkg/errors"
	"launchkart/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"exp":     exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)
}

func TestManager_StartUsesTokenExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), 12*time.Hour, logger.NewNop())

	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	s, err := m.Start(ctx, signedToken(t, exp), domain.User{ID: "u-1", Email: "founder@example.com"})
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.Equal(t, "founder@example.com", s.LastEmail)

	cur, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", cur.User.ID)
}

func TestManager_StartRejectsExpiredToken(t *testing.T) {
	m := NewManager(NewMemoryStore(), time.Hour, logger.NewNop())

	_, err := m.Start(context.Background(), signedToken(t, time.Now().Add(-time.Minute)), domain.User{ID: "u-1"})
	assert.ErrorIs(t, err, errors.ErrSessionExpired)

	_, err = m.Start(context.Background(), "  ", domain.User{ID: "u-1"})
	assert.ErrorIs(t, err, errors.ErrNotAuthenticated)
}

func TestManager_CurrentExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, time.Hour, logger.NewNop())

	_, err := m.Start(ctx, "opaque", domain.User{ID: "u-1"})
	require.NoError(t, err)

	later := time.Now().Add(2 * time.Hour)
	m.now = func() time.Time { return later }

	_, err = m.Current(ctx)
	assert.ErrorIs(t, err, errors.ErrSessionExpired)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestManager_Authorize(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour, logger.NewNop())

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.test/kyc/status", nil)
	assert.ErrorIs(t, m.Authorize(req), errors.ErrNotAuthenticated)

	_, err := m.Start(ctx, "abc", domain.User{ID: "u-1"})
	require.NoError(t, err)

	require.NoError(t, m.Authorize(req))
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))

	require.NoError(t, m.Clear(ctx))
	req2, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.test/kyc/status", nil)
	assert.ErrorIs(t, m.Authorize(req2), errors.ErrNotAuthenticated)
}

func TestManager_RememberEmailWithoutLogin(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour, logger.NewNop())

	email, err := m.LastEmail(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	require.NoError(t, m.RememberEmail(ctx, " founder@example.com "))
	email, err = m.LastEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "founder@example.com", email)

	// An email-only session carries no credential.
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.test/", nil)
	assert.ErrorIs(t, m.Authorize(req), errors.ErrNotAuthenticated)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skip("Redis not available")
	}
	defer rdb.Close()

	ctx := context.Background()
	store := NewRedisStore(cache.NewFromClient(rdb, "launchkart-test"), "session")
	defer store.Delete(ctx)

	m := NewManager(store, time.Minute, logger.NewNop())
	_, err := m.Start(ctx, "abc", domain.User{ID: "u-9", Country: domain.CountryIndia})
	require.NoError(t, err)

	s, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CountryIndia, s.User.Country)

	require.NoError(t, m.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}
