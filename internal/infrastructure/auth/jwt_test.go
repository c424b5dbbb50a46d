package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	a := NewAuthenticator("secret", "guru-chat", time.Hour)

	tok, err := a.GenerateToken("5", "Ana")
	require.NoError(t, err)

	claims, err := a.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "5", claims.UserID())
	assert.Equal(t, "Ana", claims.DisplayName)
}

func TestValidateRejects(t *testing.T) {
	a := NewAuthenticator("secret", "guru-chat", time.Hour)

	other, err := NewAuthenticator("other", "guru-chat", time.Hour).GenerateToken("5", "")
	require.NoError(t, err)
	_, err = a.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewAuthenticator("secret", "elsewhere", time.Hour).GenerateToken("5", "")
	require.NoError(t, err)
	_, err = a.ValidateToken(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "5", Issuer: "guru-chat"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestValidateExpired(t *testing.T) {
	a := NewAuthenticator("secret", "guru-chat", time.Minute)
	a.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := a.GenerateToken("5", "")
	require.NoError(t, err)

	a.now = time.Now
	_, err = a.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = BearerToken("bearer  xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Basic abc", "Bearer", "Bearer  "} {
		_, ok := BearerToken(h)
		assert.False(t, ok, h)
	}
}
