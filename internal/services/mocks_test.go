package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/psychotest-service/internal/cache"
	"github.com/SAP-F-2025/psychotest-service/internal/models"
	"github.com/SAP-F-2025/psychotest-service/internal/repositories"
)

// MockResultRepository is a mock implementation of KraepelinResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) Create(ctx context.Context, tx *gorm.DB, result *models.KraepelinResult) error {
	args := m.Called(ctx, tx, result)
	return args.Error(0)
}

func (m *MockResultRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.KraepelinResult, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KraepelinResult), args.Error(1)
}

func (m *MockResultRepository) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*models.KraepelinResult, error) {
	args := m.Called(ctx, tx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KraepelinResult), args.Error(1)
}

func (m *MockResultRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*models.KraepelinResult, int64, error) {
	args := m.Called(ctx, tx, filters)
	return args.Get(0).([]*models.KraepelinResult), args.Get(1).(int64), args.Error(2)
}

func (m *MockResultRepository) GetUserStats(ctx context.Context, tx *gorm.DB, userID uint) (*repositories.ResultStats, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.ResultStats), args.Error(1)
}

// MockRepository runs transactions inline with a nil tx
type MockRepository struct {
	results *MockResultRepository
}

func (m *MockRepository) KraepelinResult() repositories.KraepelinResultRepository {
	return m.results
}

func (m *MockRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// memorySessionStore round-trips sessions through JSON like the redis store does
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	locked   map[string]bool
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{
		sessions: make(map[string][]byte),
		locked:   make(map[string]bool),
	}
}

func (s *memorySessionStore) Save(ctx context.Context, session *models.LiveSession) error {
	b, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = b
	return nil
}

func (s *memorySessionStore) Load(ctx context.Context, id string) (*models.LiveSession, error) {
	s.mu.Lock()
	b, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, cache.ErrSessionNotFound
	}
	var live models.LiveSession
	if err := json.Unmarshal(b, &live); err != nil {
		return nil, err
	}
	return &live, nil
}

func (s *memorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memorySessionStore) WithLock(ctx context.Context, id string, fn func() error) error {
	s.mu.Lock()
	if s.locked[id] {
		s.mu.Unlock()
		return cache.ErrLockHeld
	}
	s.locked[id] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.locked, id)
		s.mu.Unlock()
	}()
	return fn()
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
