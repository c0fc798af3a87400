package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore holds the operator's bearer token: persisted to a file,
// served from memory. The console only consumes tokens; obtaining one is
// the login tooling's job.
type TokenStore struct {
	path  string
	value atomic.Value // string
}

func NewTokenStore(path string) *TokenStore {
	s := &TokenStore{path: path}
	s.value.Store("")
	return s
}

// Load reads the token file into memory. A missing file is not an
// error; Current simply stays empty.
func (s *TokenStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read token file: %w", err)
	}
	s.value.Store(strings.TrimSpace(string(data)))
	return nil
}

// Save persists the token and makes it current.
func (s *TokenStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	s.value.Store(token)
	return nil
}

// Current returns the in-memory token, or "" when none is loaded.
func (s *TokenStore) Current() string {
	if v, ok := s.value.Load().(string); ok {
		return v
	}
	return ""
}

// ExpiresAt inspects the token's exp claim without verifying the
// signature; validation is the backend's job, this only exists so the
// console can warn before dispatching with a stale token. ok is false
// when there is no token or no exp claim.
func (s *TokenStore) ExpiresAt() (time.Time, bool, error) {
	token := s.Current()
	if token == "" {
		return time.Time{}, false, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, false, nil
	}
	return exp.Time, true, nil
}

// Expired reports whether the token is known to be past its exp claim.
// Tokens without an exp claim, or unparseable ones, count as not
// expired; the backend has the final word either way.
func (s *TokenStore) Expired(now time.Time) bool {
	exp, ok, err := s.ExpiresAt()
	if err != nil || !ok {
		return false
	}
	return now.After(exp)
}
