package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a file-based session store for CLI applications.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a store under baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) sessionPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.sessionPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.IsExpired() {
		os.Remove(path)
		return nil, nil
	}
	return &sess, nil
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.sessionPath(sess.ID), data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.sessionPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Path returns the base directory for session files.
func (s *FileStore) Path() string { return s.baseDir }

var _ Store = (*FileStore)(nil)

// TokenSessionID is the id of the session holding the registry token.
const TokenSessionID = "crates-io"

// TokenStore keeps the single registry token of a CLI user.
type TokenStore struct {
	store *FileStore
}

// NewTokenStore opens the token store under dir.
func NewTokenStore(dir string) (*TokenStore, error) {
	store, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return &TokenStore{store: store}, nil
}

// Load returns the stored session, or nil if there is none.
func (t *TokenStore) Load(ctx context.Context) (*Session, error) {
	return t.store.Get(ctx, TokenSessionID)
}

// Save stores sess as the registry token session.
func (t *TokenStore) Save(ctx context.Context, sess *Session) error {
	sess.ID = TokenSessionID
	return t.store.Set(ctx, sess)
}

// Delete removes the stored token.
func (t *TokenStore) Delete(ctx context.Context) error {
	return t.store.Delete(ctx, TokenSessionID)
}

// Path returns the token file path.
func (t *TokenStore) Path() string {
	return t.store.sessionPath(TokenSessionID)
}
