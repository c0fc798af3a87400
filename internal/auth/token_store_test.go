package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "console.token")
	s := NewTokenStore(path)

	require.NoError(t, s.Save("  tok-abc \n"))
	assert.Equal(t, "tok-abc", s.Current())

	// A fresh store reads the persisted value back.
	s2 := NewTokenStore(path)
	require.NoError(t, s2.Load())
	assert.Equal(t, "tok-abc", s2.Current())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestTokenStoreLoadMissingFile(t *testing.T) {
	s := NewTokenStore(filepath.Join(t.TempDir(), "absent.token"))
	require.NoError(t, s.Load())
	assert.Empty(t, s.Current())
}

func TestTokenStoreExpiry(t *testing.T) {
	s := NewTokenStore(filepath.Join(t.TempDir(), "t"))
	now := time.Now()

	require.NoError(t, s.Save(signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})))
	exp, ok, err := s.ExpiresAt()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, now.Add(time.Hour), exp, 2*time.Second)
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(2*time.Hour)))
}

func TestTokenStoreNoExpClaim(t *testing.T) {
	s := NewTokenStore(filepath.Join(t.TempDir(), "t"))
	require.NoError(t, s.Save(signedToken(t, jwt.MapClaims{"sub": "operator"})))

	_, ok, err := s.ExpiresAt()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, s.Expired(time.Now()))
}

func TestTokenStoreOpaqueToken(t *testing.T) {
	s := NewTokenStore(filepath.Join(t.TempDir(), "t"))
	require.NoError(t, s.Save("not-a-jwt"))

	_, _, err := s.ExpiresAt()
	assert.Error(t, err)
	assert.False(t, s.Expired(time.Now()), "unparseable tokens are left to the backend")
}

func TestTokenStoreEmpty(t *testing.T) {
	s := NewTokenStore(filepath.Join(t.TempDir(), "t"))
	_, ok, err := s.ExpiresAt()
	require.NoError(t, err)
	assert.False(t, ok)
}
