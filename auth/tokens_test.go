package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(rotate bool) *TokenService {
	return NewTokenService(Config{
		SigningKey: []byte("test-secret"),
		Issuer:     "fludiobe",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Rotate:     rotate,
	})
}

func TestTokenService_IssuePair(t *testing.T) {
	svc := newTestService(false)

	pair, err := svc.IssuePair(7, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	claims, err := svc.ValidateAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_ValidateAccess(t *testing.T) {
	svc := newTestService(false)
	pair, err := svc.IssuePair(7, "alice")
	require.NoError(t, err)

	t.Run("refresh token rejected as access", func(t *testing.T) {
		_, err := svc.ValidateAccess(pair.Refresh)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("tampered signature", func(t *testing.T) {
		tampered := pair.Access[:len(pair.Access)-2] + "xx"
		_, err := svc.ValidateAccess(tampered)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("other signing key", func(t *testing.T) {
		other := NewTokenService(Config{SigningKey: []byte("other"), Issuer: "fludiobe", AccessTTL: time.Minute, RefreshTTL: time.Hour})
		foreign, err := other.IssuePair(7, "alice")
		require.NoError(t, err)

		_, err = svc.ValidateAccess(foreign.Access)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccess("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "fludiobe",
				Subject:   "7",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			TokenType: TokenTypeAccess,
			UserID:    7,
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateAccess(unsigned)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		later := newTestService(false)
		later.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

		_, err := later.ValidateAccess(pair.Access)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestTokenService_Refresh(t *testing.T) {
	t.Run("without rotation", func(t *testing.T) {
		svc := newTestService(false)
		pair, err := svc.IssuePair(7, "alice")
		require.NoError(t, err)

		refreshed, err := svc.Refresh(pair.Refresh)
		require.NoError(t, err)
		assert.Empty(t, refreshed.Refresh)

		claims, err := svc.ValidateAccess(refreshed.Access)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Username)
	})

	t.Run("with rotation", func(t *testing.T) {
		svc := newTestService(true)
		pair, err := svc.IssuePair(7, "alice")
		require.NoError(t, err)

		refreshed, err := svc.Refresh(pair.Refresh)
		require.NoError(t, err)
		require.NotEmpty(t, refreshed.Refresh)
		assert.NotEqual(t, pair.Refresh, refreshed.Refresh)
	})

	t.Run("access token rejected", func(t *testing.T) {
		svc := newTestService(false)
		pair, err := svc.IssuePair(7, "alice")
		require.NoError(t, err)

		_, err = svc.Refresh(pair.Access)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		svc := newTestService(false)
		pair, err := svc.IssuePair(7, "alice")
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		_, err = svc.Refresh(pair.Refresh)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret!"))

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
