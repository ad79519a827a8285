// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter decides whether another request for key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is a fixed-window limiter kept in process memory.
// It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// NewMemory allows limit requests per key per duration.
func NewMemory(limit int, duration time.Duration) *Memory {
	return &Memory{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || now.After(w.expiresAt) {
		m.windows[key] = &window{count: 1, expiresAt: now.Add(m.duration)}
		return true, nil
	}
	if w.count >= m.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Sweep drops expired windows. The jobs runner calls it periodically.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for key, w := range m.windows {
		if now.After(w.expiresAt) {
			delete(m.windows, key)
			n++
		}
	}
	return n
}

// Redis is a fixed-window limiter shared by every process using the same
// Redis instance.
type Redis struct {
	client   *redis.Client
	prefix   string
	limit    int
	duration time.Duration
}

// NewRedis returns a limiter storing its counters under prefix.
func NewRedis(client *redis.Client, prefix string, limit int, duration time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, limit: limit, duration: duration}
}

// Allow implements Limiter.
func (rl *Redis) Allow(ctx context.Context, key string) (bool, error) {
	slot := time.Now().Unix() / int64(rl.duration.Seconds())
	windowKey := fmt.Sprintf("%s:%s:%d", rl.prefix, key, slot)

	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, rl.duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return int(incr.Val()) <= rl.limit, nil
}

// PerIP rejects requests from a client IP that exceeded l with a 429
// envelope. Limiter errors are logged and the request is let through.
func PerIP(l Limiter, retryAfter time.Duration, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			ok, err := l.Allow(r.Context(), ip)
			if err != nil {
				log.Warn("rate limiter unavailable", zap.Error(err), zap.String("ip", ip))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				apierror.Write(w, log, apierror.TooManyRequests("Too many attempts. Please wait a minute before trying again.").
					WithData(map[string]any{"retryAfter": int(retryAfter.Seconds())}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP, preferring X-Forwarded-For and
// X-Real-IP over RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
