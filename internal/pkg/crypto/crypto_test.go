package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.True(t, CheckPassword("password123", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestHashNotDeterministic(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenRoundTrip(t *testing.T) {
	secret := "a-very-long-test-secret-value-123"
	token, err := GenerateToken("u-1", "alice@example.com", "alice", secret, 1)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "alice", claims.Name)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("u-1", "a@x.com", "a", "secret-a-secret-a-secret-a-12345", 1)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret-b-secret-b-secret-b-12345")
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token", "whatever-secret-whatever-secret-1")
	assert.Error(t, err)
}
