package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	const (
		key    = "test-signing-key"
		issuer = "rollcall"
	)

	token, expiresAt, err := Issue("staff01", "staff", issuer, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	t.Run("round trip", func(t *testing.T) {
		claims, err := Parse(token, key, issuer)
		require.NoError(t, err)
		assert.Equal(t, "staff01", claims.Subject)
		assert.Equal(t, "staff", claims.Role)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := Parse(token, "another-key", issuer)
		assert.Error(t, err)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		_, err := Parse(token, key, "someone-else")
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := Parse("not.a.token", key, issuer)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, _, err := Issue("staff01", "staff", issuer, key, -time.Minute)
		require.NoError(t, err)
		_, err = Parse(expired, key, issuer)
		assert.Error(t, err)
	})
}
