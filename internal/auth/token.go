// Package auth issues and verifies session tokens and hashes passwords. The
// rest of the storefront only sees the entity.Identity a token resolves to.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    entity.Clock
}

// NewTokens creates a Tokens with the given signing secret and lifetime.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for u and returns it with its expiry.
func (t *Tokens) Issue(u entity.User) (string, time.Time, error) {
	issuedAt := t.now()
	expiresAt := issuedAt.Add(t.ttl)
	claims := Claims{
		UserID: u.ID,
		Role:   string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ResolveIdentity verifies token and returns the identity it carries. Every
// failure, including an unknown role, is entity.ErrUnauthenticated.
func (t *Tokens) ResolveIdentity(token string) (entity.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return entity.Identity{}, entity.ErrUnauthenticated
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return entity.Identity{}, fmt.Errorf("%w: invalid or expired token", entity.ErrUnauthenticated)
	}

	role, err := entity.ParseRole(claims.Role)
	if err != nil || claims.UserID == "" {
		return entity.Identity{}, fmt.Errorf("%w: invalid token claims", entity.ErrUnauthenticated)
	}
	return entity.Identity{UserID: claims.UserID, Role: role}, nil
}
