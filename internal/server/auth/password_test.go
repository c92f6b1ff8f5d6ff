package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("senha12345", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("senha12345"), hash)

	ok, err := CheckPassword(hash, "senha12345")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "23kjdksld34")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_OutOfRangeCostFallsBack(t *testing.T) {
	hash, err := HashPassword("pw", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost(hash)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestCheckPassword_CorruptHash(t *testing.T) {
	ok, err := CheckPassword([]byte("not-a-bcrypt-hash"), "pw")
	assert.False(t, ok)
	assert.Error(t, err)
}
