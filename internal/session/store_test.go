package session

import (
	"path/filepath"
	"testing"
)

func TestStore_SaveAndLoad(t *testing.T) {
	tests := []struct {
		name    string
		session *Session
	}{
		{
			name:    "basic session",
			session: &Session{Username: "Alice", Key: "token-123", Subscriber: true},
		},
		{
			name:    "non-subscriber",
			session: &Session{Username: "bob", Key: "token-456"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session.json")
			store := NewStore(path)

			if err := store.Save(tt.session); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := store.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded == nil {
				t.Fatal("Load() returned nil session")
			}

			if loaded.Username != tt.session.Username {
				t.Errorf("Username = %q, want %q", loaded.Username, tt.session.Username)
			}
			if loaded.Key != tt.session.Key {
				t.Errorf("Key = %q, want %q", loaded.Key, tt.session.Key)
			}
			// The subscriber flag is not persisted; restored sessions always
			// read false.
			if loaded.Subscriber {
				t.Error("Subscriber should not survive a round-trip")
			}
		})
	}
}

func TestStore_LoadNonExistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "session.json")
	store := NewStore(path)

	session, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if session != nil {
		t.Errorf("Load() = %+v, want nil", session)
	}
}

func TestStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path)

	if err := store.Save(&Session{Username: "alice", Key: "k"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	session, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after Clear() error = %v", err)
	}
	if session != nil {
		t.Errorf("Load() after Clear() = %+v, want nil", session)
	}

	// Clearing an already-cleared store is not an error.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestStore_SaveNil(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	if err := store.Save(nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}
