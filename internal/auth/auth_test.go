package auth

import (
	"testing"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fixedTokens(at time.Time) *Tokens {
	t := NewTokens("test-secret", time.Hour)
	t.now = func() time.Time { return at }
	return t
}

func TestIssueAndResolve(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	tokens := fixedTokens(now)

	token, exp, err := tokens.Issue(entity.User{ID: "u1", Role: entity.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	id, err := tokens.ResolveIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, entity.Identity{UserID: "u1", Role: entity.RoleAdmin}, id)
}

func TestResolveRejects(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	tokens := fixedTokens(now)
	valid, _, err := tokens.Issue(entity.User{ID: "u1", Role: entity.RoleCustomer})
	require.NoError(t, err)

	expired := fixedTokens(now.Add(2 * time.Hour))
	other := NewTokens("other-secret", time.Hour)

	unknownRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "u1",
		Role:             "WIZARD",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           "u1",
		Role:             "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name     string
		resolver *Tokens
		token    string
	}{
		{"empty", tokens, ""},
		{"garbage", tokens, "not-a-token"},
		{"expired", expired, valid},
		{"wrong secret", other, valid},
		{"unknown role", tokens, unknownRole},
		{"unsigned", tokens, noneAlg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.resolver.ResolveIdentity(tt.token)
			assert.ErrorIs(t, err, entity.ErrUnauthenticated)
		})
	}
}

func TestLegacyRoleInToken(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	tokens := fixedTokens(now)
	legacy, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "u1",
		Role:             "USER",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	id, err := tokens.ResolveIdentity(legacy)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleCustomer, id.Role)
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	ok, err := h.Compare(hash, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Compare("plaintext", "plaintext")
	assert.Error(t, err, "a non-bcrypt value is never compared as plaintext")
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
	assert.Equal(t, 12, NewHasher(12).cost)
}
