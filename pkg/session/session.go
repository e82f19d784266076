// Package session stores the crates.io API token used for writes.
//
// Tokens are created on the crates.io account settings page and stored with
// "cratewatch login". The file store keeps one JSON file per session under
// the config directory with 0600 permissions.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Session is a stored API token.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Registry  string    `json:"registry"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsExpired reports whether the session has an expiry in the past.
// Sessions without an expiry never expire.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error
}

// GenerateID creates a random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// New creates a session for token. A zero ttl means no expiry.
func New(token, registry string, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sess := &Session{ID: id, Token: token, Registry: registry, CreatedAt: now}
	if ttl > 0 {
		sess.ExpiresAt = now.Add(ttl)
	}
	return sess, nil
}

// Masked returns the token with all but its last four characters hidden.
func (s *Session) Masked() string {
	if len(s.Token) <= 4 {
		return "****"
	}
	return "****" + s.Token[len(s.Token)-4:]
}
