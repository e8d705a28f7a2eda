package session

import (
	"context"
	"sync"
	"time"

	"launchkart/pkg/cache"
	"launchkart/pkg/errors"
)

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu        sync.RWMutex
	session   *Session
	expiresAt time.Time
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil || (!s.expiresAt.IsZero() && !s.now().Before(s.expiresAt)) {
		return nil, errors.ErrSessionNotFound
	}
	cp := *s.session
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.session = &cp
	s.expiresAt = time.Time{}
	if ttl > 0 {
		s.expiresAt = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	s.expiresAt = time.Time{}
	return nil
}

// RedisStore keeps the session in Redis so several terminal invocations share it.
type RedisStore struct {
	cache *cache.RedisCache
	key   string
}

func NewRedisStore(c *cache.RedisCache, key string) *RedisStore {
	if key == "" {
		key = "session"
	}
	return &RedisStore{cache: c, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (*Session, error) {
	var sess Session
	if err := s.cache.Get(ctx, s.key, &sess); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, errors.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "failed to load session")
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	return s.cache.Set(ctx, s.key, sess, ttl)
}

func (s *RedisStore) Delete(ctx context.Context) error {
	return s.cache.Delete(ctx, s.key)
}
