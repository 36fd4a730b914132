package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"medportal/internal/domain"
	"medportal/pkg/cache"
)

// Store keeps per-chat workflow state for the bot channel.
type Store interface {
	Save(ctx context.Context, s *domain.WorkflowSession) error
	Load(ctx context.Context, chatID int64) (*domain.WorkflowSession, error)
	Drop(ctx context.Context, chatID int64) error
}

const sessionNamespace = "botsession"

type RedisStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRedisStore(c *cache.Cache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, sess *domain.WorkflowSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := strconv.FormatInt(sess.ChatID, 10)
	if err := s.cache.Set(ctx, sessionNamespace, key, string(data), s.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Load returns a fresh idle session when none is stored, so callers
// never have to special-case a missing one.
func (s *RedisStore) Load(ctx context.Context, chatID int64) (*domain.WorkflowSession, error) {
	key := strconv.FormatInt(chatID, 10)
	raw, err := s.cache.Get(ctx, sessionNamespace, key)
	if err == redis.Nil {
		return &domain.WorkflowSession{ChatID: chatID, Step: domain.StepIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess domain.WorkflowSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Drop(ctx context.Context, chatID int64) error {
	key := strconv.FormatInt(chatID, 10)
	if err := s.cache.Delete(ctx, sessionNamespace, key); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store used in tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]*domain.WorkflowSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*domain.WorkflowSession)}
}

func (s *MemoryStore) Save(_ context.Context, sess *domain.WorkflowSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ChatID] = &cp
	return nil
}

func (s *MemoryStore) Load(_ context.Context, chatID int64) (*domain.WorkflowSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return &domain.WorkflowSession{ChatID: chatID, Step: domain.StepIdle}, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) Drop(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}
