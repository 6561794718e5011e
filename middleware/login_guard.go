package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// LoginGuard tracks failed logins per account and applies a progressive
// lockout: 1min, 5min, 15min, then 30min. Redis-backed when a client is
// provided so the lockout holds across instances, in-memory otherwise.
type LoginGuard struct {
	redis *redis.Client

	mu        sync.Mutex
	failures  map[string]int
	lockUntil map[string]int64
}

func NewLoginGuard(rc *redis.Client) *LoginGuard {
	return &LoginGuard{
		redis:     rc,
		failures:  make(map[string]int),
		lockUntil: make(map[string]int64),
	}
}

func lockDuration(failures int) time.Duration {
	switch {
	case failures <= 2:
		return 0
	case failures == 3:
		return time.Minute
	case failures == 4:
		return 5 * time.Minute
	case failures == 5:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

func (g *LoginGuard) Locked(email string) (bool, time.Duration) {
	if g.redis != nil {
		ttl, err := g.redis.TTL(context.Background(), g.lockKey(email)).Result()
		if err == nil && ttl > 0 {
			return true, ttl
		}
		return false, 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	until := g.lockUntil[email]
	now := time.Now().UnixNano()
	if until > now {
		return true, time.Duration(until - now)
	}
	if until != 0 {
		delete(g.lockUntil, email)
	}
	return false, 0
}

func (g *LoginGuard) RecordFailure(email string) {
	if g.redis != nil {
		ctx := context.Background()
		failures, err := g.redis.Incr(ctx, g.failKey(email)).Result()
		if err != nil {
			return
		}
		_ = g.redis.Expire(ctx, g.failKey(email), 30*time.Minute).Err()
		if d := lockDuration(int(failures)); d > 0 {
			_ = g.redis.Set(ctx, g.lockKey(email), "1", d).Err()
		}
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[email]++
	if d := lockDuration(g.failures[email]); d > 0 {
		g.lockUntil[email] = time.Now().Add(d).UnixNano()
	}
}

func (g *LoginGuard) Reset(email string) {
	if g.redis != nil {
		_ = g.redis.Del(context.Background(), g.failKey(email), g.lockKey(email)).Err()
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failures, email)
	delete(g.lockUntil, email)
}

func (g *LoginGuard) failKey(email string) string { return fmt.Sprintf("login:fail:%s", email) }
func (g *LoginGuard) lockKey(email string) string { return fmt.Sprintf("login:lock:%s", email) }
