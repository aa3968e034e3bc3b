package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordSalted(t *testing.T) {
	first, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)
	second, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("password123", first))
	assert.True(t, VerifyPassword("password123", second))
}

func TestVerifyPasswordMismatch(t *testing.T) {
	hash, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.False(t, VerifyPassword("password124", hash))
	assert.False(t, VerifyPassword("password123", "not-a-bcrypt-hash"))
	assert.False(t, VerifyPassword("password123", ""))
}
