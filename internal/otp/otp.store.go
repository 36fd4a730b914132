package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"medportal/internal/domain"
	"medportal/pkg/cache"
	"medportal/pkg/xerrors"
)

// Store holds at most one pending challenge per subject.
type Store interface {
	// Put saves the challenge, replacing any existing one for the
	// same subject.
	Put(ctx context.Context, ch *domain.OtpChallenge) error
	// Get returns the active challenge for the subject. Returns
	// xerrors.ErrOTPNotFound when none exists and
	// xerrors.ErrExpiredOTP when one exists but its validity window
	// has passed.
	Get(ctx context.Context, subject string) (*domain.OtpChallenge, error)
	// Consume removes the challenge so the code cannot be replayed.
	Consume(ctx context.Context, subject string) error
}

const otpNamespace = "otp"

type RedisStore struct {
	cache *cache.Cache
	now   func() time.Time
}

func NewRedisStore(c *cache.Cache) *RedisStore {
	return &RedisStore{cache: c, now: time.Now}
}

func (s *RedisStore) Put(ctx context.Context, ch *domain.OtpChallenge) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal otp challenge: %w", err)
	}
	// Keep the record around past expiry so a late verify can be told
	// the code expired rather than that it never existed.
	ttl := 2 * ch.ExpiresAt.Sub(ch.IssuedAt)
	if err := s.cache.Set(ctx, otpNamespace, ch.Subject, string(data), ttl); err != nil {
		return fmt.Errorf("store otp challenge: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, subject string) (*domain.OtpChallenge, error) {
	raw, err := s.cache.Get(ctx, otpNamespace, subject)
	if err == redis.Nil {
		return nil, xerrors.ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load otp challenge: %w", err)
	}
	var ch domain.OtpChallenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return nil, fmt.Errorf("decode otp challenge: %w", err)
	}
	if s.now().After(ch.ExpiresAt) {
		return nil, xerrors.ErrExpiredOTP
	}
	return &ch, nil
}

func (s *RedisStore) Consume(ctx context.Context, subject string) error {
	if err := s.cache.Delete(ctx, otpNamespace, subject); err != nil {
		return fmt.Errorf("consume otp challenge: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store used in tests.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*domain.OtpChallenge
	Now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]*domain.OtpChallenge),
		Now:        time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, ch *domain.OtpChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ch
	s.challenges[ch.Subject] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, subject string) (*domain.OtpChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[subject]
	if !ok {
		return nil, xerrors.ErrOTPNotFound
	}
	if s.Now().After(ch.ExpiresAt) {
		return nil, xerrors.ErrExpiredOTP
	}
	cp := *ch
	return &cp, nil
}

func (s *MemoryStore) Consume(_ context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, subject)
	return nil
}
