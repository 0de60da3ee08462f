// Package session persists the authenticated Last.fm identity across process
// restarts.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	configDirName   = "spotfm"
	sessionFileName = "session.json"
)

// Session is the locally persisted identity. Username is always the
// canonical name returned by Last.fm at login. Subscriber is known only for
// sessions fresh from the API; it is not written to disk, so a restored
// session always carries false.
type Session struct {
	Username   string `json:"username"`
	Key        string `json:"session_key"`
	Subscriber bool   `json:"-"`
}

// Store handles persistent storage of the session record. Mutation is a
// whole-record replace guarded by a mutex, never a partial field update.
type Store struct {
	mu   sync.Mutex
	path string
}

// DefaultStore returns a Store using the default location:
// ~/.config/spotfm/session.json
func DefaultStore() (*Store, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}

	path := filepath.Join(configDir, configDirName, sessionFileName)
	return &Store{path: path}, nil
}

// NewStore creates a Store with a custom path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path where the session is stored.
func (s *Store) Path() string {
	return s.path
}

// Load reads the saved session from disk.
// Returns (nil, nil) if no session has been saved.
func (s *Store) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	if session.Username == "" || session.Key == "" {
		return nil, nil
	}

	return &session, nil
}

// Save writes the session to disk, creating the parent directory if needed.
func (s *Store) Save(session *Session) error {
	if session == nil {
		return errors.New("cannot save nil session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}

	return nil
}

// Clear removes the saved session file.
// Returns nil if no session was saved.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
