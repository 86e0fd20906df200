package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Minute, time.Hour)

	token, err := m.GenerateToken("uid-1", "ana@example.com")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, TokenAccess, claims.Type)

	refresh, err := m.GenerateRefreshToken("uid-1", "ana@example.com")
	require.NoError(t, err)
	claims, err = m.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, claims.Type)
}

func TestJWTManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewJWTManager("one", time.Minute, time.Hour).GenerateToken("uid-1", "a@b.c")
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Minute, time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute, time.Hour)
	token, err := m.GenerateToken("uid-1", "a@b.c")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	for _, header := range []string{"", "Bearer ", "Basic abc", "abc"} {
		_, err := ExtractToken(header)
		assert.Error(t, err, header)
	}
}

func TestPasswords(t *testing.T) {
	BcryptCost = bcrypt.MinCost

	_, err := HashPassword("12345")
	assert.Error(t, err)

	hash, err := HashPassword("naranja1")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword("naranja1", hash))
	assert.ErrorIs(t, CheckPassword("pomelo", hash), ErrInvalidPassword)
}
