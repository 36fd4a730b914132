package otp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"medportal/pkg/cache"
	"medportal/pkg/xerrors"
)

// Limiter throttles how often a subject can request a fresh code:
// a cooldown between consecutive sends plus a per-window cap.
type Limiter struct {
	cache       *cache.Cache
	window      time.Duration
	maxInWindow int
	cooldown    time.Duration
}

func NewLimiter(c *cache.Cache, window time.Duration, maxInWindow int, cooldown time.Duration) *Limiter {
	return &Limiter{
		cache:       c,
		window:      window,
		maxInWindow: maxInWindow,
		cooldown:    cooldown,
	}
}

func (l *Limiter) Allow(ctx context.Context, subject string) error {
	if l == nil || l.cache == nil {
		return nil
	}

	lastKey := fmt.Sprintf("last:%s", subject)
	countKey := fmt.Sprintf("count:%s", subject)

	if _, err := l.cache.Get(ctx, otpNamespace, lastKey); err == nil {
		return xerrors.ErrTooManyOTPRequests
	} else if err != redis.Nil {
		// Redis trouble should not lock users out of verification.
		log.Printf("[otp] rate limiter read failed for %s: %v", subject, err)
		return nil
	}

	count, err := l.cache.IncrWithExpire(ctx, otpNamespace, countKey, l.window)
	if err != nil {
		log.Printf("[otp] rate limiter incr failed for %s: %v", subject, err)
		return nil
	}
	if count > int64(l.maxInWindow) {
		return xerrors.ErrTooManyOTPRequests
	}

	if err := l.cache.Set(ctx, otpNamespace, lastKey, "1", l.cooldown); err != nil {
		log.Printf("[otp] rate limiter cooldown set failed for %s: %v", subject, err)
	}
	return nil
}
