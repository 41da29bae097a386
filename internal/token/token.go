// Package token mints and verifies the signed, time-bounded session
// credentials issued after authentication. It also owns the single shared
// bearer-extraction path used by every authorized route.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TTL is the fixed lifetime of a session credential.
const TTL = 15 * time.Minute

// claimsCacheSize bounds the validated-claims cache. Tokens are immutable
// strings, so a successful signature check can be reused; expiry is still
// re-checked on every lookup.
const claimsCacheSize = 1024

var (
	// ErrInvalidToken is returned when the signature does not verify or the
	// token is otherwise unparseable.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when the signature verifies but the expiry
	// timestamp has passed.
	ErrExpiredToken = errors.New("token expired")

	// ErrMalformedAuthorization is returned when an authorization value does
	// not match the two-token "Bearer <token>" scheme.
	ErrMalformedAuthorization = errors.New("malformed authorization header")
)

// Claims is the verified content of a session credential.
type Claims struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Manager issues and validates session credentials with a process-wide
// symmetric signing key. The key is set once at startup and never rotated
// mid-process.
type Manager struct {
	key   []byte
	cache *lru.Cache[string, *Claims]
}

// NewManager creates a Manager around the given signing key.
func NewManager(signingKey string) (*Manager, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("signing key must not be empty")
	}
	cache, err := lru.New[string, *Claims](claimsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create claims cache: %w", err)
	}
	return &Manager{key: []byte(signingKey), cache: cache}, nil
}

// Issue mints a signed credential for subject carrying the given roles.
// Issued-at is stamped now, expiry at now + TTL.
func (m *Manager) Issue(subject string, roles []string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign session credential: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and timestamps of tokenString and returns
// the embedded claims. A credential is valid only while issued-at <= now <
// expiry: signature failures and future issued-at map to ErrInvalidToken,
// a passed expiry to ErrExpiredToken. Validity is re-derived on every call;
// the cache only short-circuits the signature check, never the timestamp
// checks.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	if cached, ok := m.cache.Get(tokenString); ok {
		now := time.Now()
		if now.Before(cached.IssuedAt) {
			return nil, ErrInvalidToken
		}
		if now.After(cached.ExpiresAt) {
			return nil, ErrExpiredToken
		}
		return cached, nil
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}

	result := &Claims{
		Subject:   claims.Subject,
		Roles:     claims.Roles,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	m.cache.Add(tokenString, result)
	return result, nil
}

// ParseBearer extracts the token from an authorization value. The value must
// be exactly two whitespace-separated tokens with a case-insensitive "bearer"
// scheme keyword.
func ParseBearer(authorization string) (string, error) {
	fields := strings.Fields(authorization)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return "", ErrMalformedAuthorization
	}
	return fields[1], nil
}
