// Package session holds the authenticated user's token and name and mirrors
// them into persistent storage so a reload within the same session stays
// logged in.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Storage keys.
const (
	TokenKey    = "authToken"
	UsernameKey = "authUsername"
)

// Storage is a persistent string key-value store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// Session is the in-memory authentication state. Token and username are
// always set and cleared together.
type Session struct {
	mu       sync.RWMutex
	token    string
	username string

	storage Storage
	logger  *slog.Logger
}

// New returns an empty session backed by storage.
func New(storage Storage, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{storage: storage, logger: logger}
}

// Restore loads token and username from storage. The session is only
// populated when both are present. It reports whether it did so.
func (s *Session) Restore() bool {
	token, ok, err := s.storage.Get(TokenKey)
	if err != nil {
		s.logger.Warn("Failed to read stored token", "error", err)
		return false
	}
	if !ok || token == "" {
		return false
	}

	username, ok, err := s.storage.Get(UsernameKey)
	if err != nil {
		s.logger.Warn("Failed to read stored username", "error", err)
		return false
	}
	if !ok || username == "" {
		return false
	}

	s.mu.Lock()
	s.token, s.username = token, username
	s.mu.Unlock()

	s.logger.Info("Auth token and username loaded from session storage", "username", username)
	return true
}

// Set replaces the session and persists it with two separate writes. The
// in-memory session is updated even if persisting fails.
func (s *Session) Set(token, username string) error {
	s.mu.Lock()
	s.token, s.username = token, username
	s.mu.Unlock()

	var errs []error
	if err := s.storage.Set(TokenKey, token); err != nil {
		errs = append(errs, fmt.Errorf("persist %s: %w", TokenKey, err))
	}
	if err := s.storage.Set(UsernameKey, username); err != nil {
		errs = append(errs, fmt.Errorf("persist %s: %w", UsernameKey, err))
	}
	return errors.Join(errs...)
}

// Clear empties the session and removes both storage keys. It is idempotent.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token, s.username = "", ""
	s.mu.Unlock()

	for _, key := range []string{TokenKey, UsernameKey} {
		if err := s.storage.Remove(key); err != nil {
			s.logger.Warn("Failed to remove stored session key", "key", key, "error", err)
		}
	}
}

// Token returns the current token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Username returns the current username and whether one is set.
func (s *Session) Username() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username, s.username != ""
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// ExpiresAt returns the token's exp claim. The signature is not checked; the
// host remains the only authority on whether the token is valid.
func (s *Session) ExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
