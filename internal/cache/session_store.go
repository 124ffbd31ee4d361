package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/psychotest-service/internal/models"
)

const (
	sessionKeyPrefix = "kraepelin:session:"
	lockKeyPrefix    = "kraepelin:lock:"
	lockTTL          = 5 * time.Second
	lockRetries      = 25
	lockRetryDelay   = 20 * time.Millisecond
)

// ErrSessionNotFound is returned when no live session exists under an id
var ErrSessionNotFound = errors.New("live session not found")

// SessionStore keeps in-progress tests between requests
type SessionStore interface {
	Save(ctx context.Context, session *models.LiveSession) error
	Load(ctx context.Context, id string) (*models.LiveSession, error)
	Delete(ctx context.Context, id string) error

	// WithLock serializes fn against every other caller using the same session id
	WithLock(ctx context.Context, id string, fn func() error) error
}

type sessionStore struct {
	cache CacheService
	ttl   time.Duration
}

func NewSessionStore(cache CacheService, ttl time.Duration) SessionStore {
	return &sessionStore{cache: cache, ttl: ttl}
}

func (s *sessionStore) Save(ctx context.Context, session *models.LiveSession) error {
	return s.cache.Set(ctx, sessionKeyPrefix+session.ID, session, s.ttl)
}

func (s *sessionStore) Load(ctx context.Context, id string) (*models.LiveSession, error) {
	var session models.LiveSession
	if err := s.cache.Get(ctx, sessionKeyPrefix+id, &session); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+id)
}

func (s *sessionStore) WithLock(ctx context.Context, id string, fn func() error) error {
	var unlock func()
	var err error
	for attempt := 0; attempt < lockRetries; attempt++ {
		unlock, err = s.cache.Lock(ctx, lockKeyPrefix+id, lockTTL)
		if !errors.Is(err, ErrLockHeld) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}
