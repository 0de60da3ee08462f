// Package auth composes the Last.fm client, the session store and the sync
// service into the login, restore and logout flows.
package auth

import (
	"context"
	"fmt"

	"spotfm/internal/lastfm"
	"spotfm/internal/session"
)

// SessionClient is the part of the Last.fm client the flow needs.
type SessionClient interface {
	GetMobileSession(ctx context.Context, username, password string) (*lastfm.Session, error)
}

// ProfileSyncer ensures a profile row exists after login.
// Implemented by *sync.Service.
type ProfileSyncer interface {
	EnsureProfile(ctx context.Context, username string)
}

// Service handles authentication against Last.fm.
type Service struct {
	api      SessionClient
	sessions *session.Store
	syncer   ProfileSyncer
}

// New creates a new authentication service.
func New(api SessionClient, sessions *session.Store, syncer ProfileSyncer) *Service {
	return &Service{
		api:      api,
		sessions: sessions,
		syncer:   syncer,
	}
}

// Login authenticates against Last.fm, persists the session under the
// canonical username the API returned, and makes sure a profile row exists
// for it. The profile sync is best-effort: once the session is persisted,
// Login succeeds even if the sync step fails. Credential rejections surface
// as *lastfm.AuthError with the remote-supplied message.
func (s *Service) Login(ctx context.Context, username, password string) (*session.Session, error) {
	remote, err := s.api.GetMobileSession(ctx, username, password)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		Username:   remote.Name,
		Key:        remote.Key,
		Subscriber: remote.Subscriber,
	}
	if err := s.sessions.Save(sess); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	s.syncer.EnsureProfile(ctx, sess.Username)

	return sess, nil
}

// Restore reconstructs the session from local storage without contacting
// Last.fm. Returns (nil, nil) when no session is saved. The subscriber flag
// is unknown for restored sessions and reads false.
func (s *Service) Restore() (*session.Session, error) {
	sess, err := s.sessions.Load()
	if err != nil {
		return nil, fmt.Errorf("loading saved session: %w", err)
	}
	return sess, nil
}

// Logout clears the local session. It has no remote-side effect.
func (s *Service) Logout() error {
	if err := s.sessions.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
