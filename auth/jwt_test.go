package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyHS256RoundTrip(t *testing.T) {
	v, err := NewVerifier("secret", "")
	require.NoError(t, err)

	token, err := IssueToken("secret", 42, "red@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "red@example.com", claims.Email)

	id := NewIdentity(claims)
	assert.NotEmpty(t, id.ConnID)
	assert.Equal(t, int64(42), id.UserID)
	assert.NotEqual(t, id.ConnID, NewIdentity(claims).ConnID, "each connection gets its own id")
}

func TestVerifyRejectsWrongSecretAndExpired(t *testing.T) {
	v, err := NewVerifier("secret", "")
	require.NoError(t, err)

	wrong, err := IssueToken("other", 1, "a@b.c", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(wrong)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	expired, err := IssueToken("secret", 1, "a@b.c", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = v.Verify("")
	assert.True(t, errors.Is(err, ErrMissingToken))
}

func TestVerifyNotConfigured(t *testing.T) {
	v, err := NewVerifier("", "")
	require.NoError(t, err)
	assert.False(t, v.Configured())
	_, err = v.Verify("anything")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=abc", nil)
	assert.Equal(t, "abc", TokenFromRequest(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", TokenFromRequest(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", TokenFromRequest(r))
}
