package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderstay/wander/auth"
)

func signedTestJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestExpiryFromJWT(t *testing.T) {
	exp := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)

	raw := signedTestJWT(t, jwt.MapClaims{
		"sub": "guest-42",
		"exp": exp.Unix(),
	})

	got, ok := auth.ExpiryFromJWT(raw)
	require.True(t, ok)
	assert.True(t, got.Equal(exp), "got %v, want %v", got, exp)
}

func TestExpiryFromJWT_NoExpClaim(t *testing.T) {
	raw := signedTestJWT(t, jwt.MapClaims{"sub": "guest-42"})

	_, ok := auth.ExpiryFromJWT(raw)
	assert.False(t, ok)
}

func TestExpiryFromJWT_NotAJWT(t *testing.T) {
	for _, raw := range []string{"", "opaque-token", "a.b", "x.y.z"} {
		_, ok := auth.ExpiryFromJWT(raw)
		assert.False(t, ok, "expected no expiry from %q", raw)
	}
}

func TestExpiryFromJWT_IgnoresExpiredDeadline(t *testing.T) {
	// Extraction reports the deadline as-is; freshness policy lives elsewhere.
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	raw := signedTestJWT(t, jwt.MapClaims{"exp": exp.Unix()})

	got, ok := auth.ExpiryFromJWT(raw)
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
}
