package router

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"medportal/pkg/cache"
)

// RateLimit throttles requests per client IP. Once the limit is hit
// the client is blocked for the remainder of the window. Redis
// trouble fails open.
func RateLimit(c *cache.Cache, limit int, window time.Duration, keyPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)

			blockKey := fmt.Sprintf("%s:block:%s", keyPrefix, ip)
			countKey := fmt.Sprintf("%s:count:%s", keyPrefix, ip)

			if _, err := c.Get(ctx, "rate", blockKey); err == nil {
				retryAfter(w, c, ctx, blockKey, window)
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			} else if err != redis.Nil {
				log.Printf("[rate] redis read failed: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			count, err := c.IncrWithExpire(ctx, "rate", countKey, window)
			if err != nil {
				log.Printf("[rate] redis incr failed: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				if err := c.Set(ctx, "rate", blockKey, "1", window); err != nil {
					log.Printf("[rate] redis block set failed: %v", err)
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(w http.ResponseWriter, c *cache.Cache, ctx context.Context, blockKey string, window time.Duration) {
	ttl, err := c.GetTTL(ctx, "rate", blockKey)
	if err != nil || ttl <= 0 {
		ttl = window
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the client, the rest are proxies.
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
