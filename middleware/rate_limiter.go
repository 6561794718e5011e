package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/BalwinderCa/dastiyor-sub001/utils"
)

// Rule is a request budget: at most Max requests per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of one counted request.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store counts requests per key. Handlers depend on this abstraction, not on
// a process-global map: MemoryStore for a single instance, RedisStore when a
// shared counter across instances is needed.
type Store interface {
	Check(key string, rule Rule) Decision
}

type timestamps []int64

func nowUnix() int64 { return time.Now().UnixNano() }

// MemoryStore is a sliding-window counter keyed by string, with periodic
// cleanup of idle keys.
type MemoryStore struct {
	mu    sync.Mutex
	state map[string]timestamps
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{state: make(map[string]timestamps)}
	go s.cleanupLoop(time.Minute)
	return s
}

func (s *MemoryStore) Check(key string, rule Rule) Decision {
	now := nowUnix()
	cutoff := now - int64(rule.Window)

	s.mu.Lock()
	arr := s.state[key]
	var filtered timestamps
	var oldest int64
	for _, ts := range arr {
		if ts >= cutoff {
			if oldest == 0 || ts < oldest {
				oldest = ts
			}
			filtered = append(filtered, ts)
		}
	}
	filtered = append(filtered, now)
	s.state[key] = filtered
	count := len(filtered)
	s.mu.Unlock()

	remaining := rule.Max - count
	if remaining < 0 {
		remaining = 0
	}
	if count <= rule.Max {
		return Decision{Allowed: true, Remaining: remaining}
	}
	retry := time.Second
	if oldest > 0 {
		if d := time.Duration(oldest + int64(rule.Window) - now); d > retry {
			retry = d
		}
	}
	return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}
}

func (s *MemoryStore) cleanupLoop(tickEvery time.Duration) {
	tick := time.NewTicker(tickEvery)
	defer tick.Stop()
	for range tick.C {
		// drop keys whose every timestamp is older than an hour
		cutoff := nowUnix() - int64(time.Hour)
		s.mu.Lock()
		for k, arr := range s.state {
			stale := true
			for _, ts := range arr {
				if ts >= cutoff {
					stale = false
					break
				}
			}
			if stale {
				delete(s.state, k)
			}
		}
		s.mu.Unlock()
	}
}

// RedisStore is a fixed-window counter (INCR + EXPIRE) shared across
// instances. On Redis failure it allows the request: an outage must not take
// the API down with it.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Check(key string, rule Rule) Decision {
	ctx := context.Background()
	window := time.Now().UnixNano() / int64(rule.Window)
	rkey := fmt.Sprintf("rl:%s:%d", key, window)

	count, err := s.client.Incr(ctx, rkey).Result()
	if err != nil {
		return Decision{Allowed: true, Remaining: rule.Max}
	}
	if count == 1 {
		_ = s.client.Expire(ctx, rkey, rule.Window).Err()
	}
	remaining := rule.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if int(count) <= rule.Max {
		return Decision{Allowed: true, Remaining: remaining}
	}
	retry := rule.Window - time.Duration(time.Now().UnixNano()%int64(rule.Window))
	if retry < time.Second {
		retry = time.Second
	}
	return Decision{Allowed: false, RetryAfter: retry}
}

// DefaultStore picks Redis when configured, in-memory otherwise.
func DefaultStore() Store {
	if utils.RedisClient != nil {
		return NewRedisStore(utils.RedisClient)
	}
	return NewMemoryStore()
}

// Limiter binds a Store and a Rule to a request key function.
type Limiter struct {
	store Store
	rule  Rule
	keyFn func(*http.Request) (string, bool)
}

// NewIPLimiter counts per client IP. X-Forwarded-For / X-Real-IP are honored
// only when the remote address is inside TRUSTED_PROXIES.
func NewIPLimiter(store Store, maxReq int, window time.Duration) *Limiter {
	var trusted []string
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		trusted = strings.Split(v, ",")
	}
	return &Limiter{
		store: store,
		rule:  Rule{Max: maxReq, Window: window},
		keyFn: func(r *http.Request) (string, bool) {
			return "ip:" + clientIP(r, trusted), true
		},
	}
}

// NewUserLimiter counts per authenticated principal; unauthenticated requests
// pass through (the IP limiter covers those routes).
func NewUserLimiter(store Store, maxReq int, window time.Duration) *Limiter {
	return &Limiter{
		store: store,
		rule:  Rule{Max: maxReq, Window: window},
		keyFn: func(r *http.Request) (string, bool) {
			p, ok := utils.GetPrincipal(r)
			if !ok {
				return "", false
			}
			return fmt.Sprintf("u:%d", p.ID), true
		},
	}
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := l.keyFn(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		d := l.store.Check(key, l.rule)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.rule.Max))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
		if !d.Allowed {
			retry := int(d.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Message: "Слишком много запросов, попробуйте позже",
				Data:    map[string]interface{}{"retry_after_seconds": retry},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the client IP, honoring forwarding headers only when the
// remote address is in one of the trusted CIDRs or IPs.
func clientIP(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	if remoteHost == "" {
		return r.RemoteAddr
	}
	return remoteHost
}
