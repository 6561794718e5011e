package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/BalwinderCa/dastiyor-sub001/models"
)

// SessionCookie carries the signed session token. HTTP-only, SameSite=Strict,
// 1-day expiry.
const SessionCookie = "dastiyor_session"

const sessionTTL = 24 * time.Hour

// RedisClient is an optional shared Redis client used by the rate-limit store
// and login lockout for cross-process coordination. Nil when REDIS_ADDR is
// not configured.
var RedisClient *redis.Client

func init() {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return
	}
	opts := &redis.Options{Addr: addr}
	if p := os.Getenv("REDIS_PASS"); p != "" {
		opts.Password = p
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		var dbn int
		_, _ = fmt.Sscanf(dbStr, "%d", &dbn)
		opts.DB = dbn
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(context.Background()).Err(); err != nil {
		fmt.Printf("warning: redis ping failed: %v\n", err)
		return
	}
	RedisClient = rc
}

type contextKey string

const PrincipalKey = contextKey("principal")
const RequestIDKey = contextKey("requestID")

// Principal is the authenticated identity derived from the session token.
type Principal struct {
	ID    uint
	Email string
	Role  string
}

// GenerateSessionToken signs a 1-day HS256 token with the claims the identity
// assertion needs: id, email, role.
func GenerateSessionToken(u *models.User) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", errors.New("JWT_SECRET is not set")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"id":    u.ID,
		"email": u.Email,
		"role":  u.Role,
		"exp":   now.Add(sessionTTL).Unix(),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"jti":   uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates signature and registered claims and returns the
// principal. Stateless: there is no revocation list.
func ParseSessionToken(tokenStr string) (Principal, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Principal{}, errors.New("JWT_SECRET is not set")
	}
	token, err := jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Require exact HS256 to avoid algorithm confusion.
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Principal{}, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, errors.New("invalid claims")
	}

	var p Principal
	if rawID, ok := claims["id"]; ok {
		switch v := rawID.(type) {
		case float64:
			p.ID = uint(v)
		case int:
			p.ID = uint(v)
		}
	}
	if p.ID == 0 {
		return Principal{}, errors.New("invalid token payload")
	}
	if s, ok := claims["email"].(string); ok {
		p.Email = s
	}
	if s, ok := claims["role"].(string); ok {
		p.Role = s
	}
	return p, nil
}

// SetSessionCookie writes the session cookie. Secure is enforced outside
// development so the token never travels over plain HTTP in production.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   strings.ToLower(os.Getenv("ENV")) != "development",
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// TokenFromRequest reads the session token from the cookie, falling back to
// an Authorization: Bearer header for API clients.
func TokenFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")), true
	}
	return "", false
}

// GetPrincipal returns the authenticated principal set by the auth middleware.
func GetPrincipal(r *http.Request) (Principal, bool) {
	p, ok := r.Context().Value(PrincipalKey).(Principal)
	return p, ok
}

// WithPrincipal injects a principal into the request context. Used by the
// auth middleware and by handler tests.
func WithPrincipal(r *http.Request, p Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), PrincipalKey, p))
}
