// Package sync reconciles locally stored profiles and listening history
// against Last.fm, the authoritative source.
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"spotfm/internal/db"
	"spotfm/internal/lastfm"
)

// ProfileStore is the profile persistence surface the service needs.
// Implemented by *db.ProfileRepository.
type ProfileStore interface {
	GetByUsername(ctx context.Context, username string) (*db.Profile, error)
	Upsert(ctx context.Context, profile *db.Profile) error
	UpdateLocation(ctx context.Context, username string, lat, lon float64) error
	UpdateBio(ctx context.Context, username, bio string) error
	SetVisibility(ctx context.Context, username string, visible bool) error
	ListVisible(ctx context.Context, excludeUsername string) ([]db.Profile, error)
}

// ScrobbleStore is the history persistence surface the service needs.
// Implemented by *db.ScrobbleRepository.
type ScrobbleStore interface {
	Replace(ctx context.Context, username string, scrobbles []db.Scrobble) error
	ListForUser(ctx context.Context, username string) ([]db.Scrobble, error)
	Latest(ctx context.Context, username string) (*db.Scrobble, error)
}

// UserFetcher abstracts the Last.fm client for testing.
type UserFetcher interface {
	GetUserInfo(ctx context.Context, username string) (*lastfm.UserInfo, error)
	GetRecentTracks(ctx context.Context, username string, limit int) ([]lastfm.Track, error)
}

// Service keeps the data store in step with Last.fm.
type Service struct {
	profiles     ProfileStore
	scrobbles    ScrobbleStore
	api          UserFetcher
	log          zerolog.Logger
	historyLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithHistoryLimit sets how many recent tracks a history refresh fetches.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		s.historyLimit = n
	}
}

// New creates a new sync service.
func New(profiles ProfileStore, scrobbles ScrobbleStore, api UserFetcher, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		profiles:     profiles,
		scrobbles:    scrobbles,
		api:          api,
		log:          log,
		historyLimit: lastfm.DefaultRecentTracksLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureProfile makes sure a profile row exists for the user, fetching it
// from Last.fm on a cache miss. Best-effort: every failure is logged and
// swallowed so the caller's primary operation (typically login) is never
// aborted by it.
func (s *Service) EnsureProfile(ctx context.Context, username string) {
	_, err := s.profiles.GetByUsername(ctx, username)
	if err == nil {
		return
	}
	if !errors.Is(err, db.ErrNotFound) {
		s.log.Warn().Err(err).Str("username", username).Msg("profile existence check failed")
		return
	}

	if _, err := s.RefreshProfile(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("first-time profile sync failed")
	}
}

// Profile reads the stored profile by case-insensitive username match.
// Returns db.ErrNotFound when no row exists.
func (s *Service) Profile(ctx context.Context, username string) (*db.Profile, error) {
	return s.profiles.GetByUsername(ctx, username)
}

// RefreshProfile unconditionally fetches the user's profile from Last.fm and
// upserts it. Unlike EnsureProfile, failures propagate: explicit refresh
// actions need to see them.
func (s *Service) RefreshProfile(ctx context.Context, username string) (*db.Profile, error) {
	info, err := s.api.GetUserInfo(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("fetching profile from Last.fm: %w", err)
	}

	profile := profileFromUserInfo(info)
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("storing profile: %w", err)
	}
	return profile, nil
}

// RefreshHistory replaces the user's stored listening history with the most
// recent window from Last.fm. The swap is transactional at the store. Errors
// propagate: stale history is worse than a visible error. Refreshing twice
// against an unchanged remote history leaves the same final record set.
func (s *Service) RefreshHistory(ctx context.Context, username string) error {
	tracks, err := s.api.GetRecentTracks(ctx, username, s.historyLimit)
	if err != nil {
		return fmt.Errorf("fetching recent tracks: %w", err)
	}

	scrobbles := make([]db.Scrobble, len(tracks))
	for i, t := range tracks {
		scrobbles[i] = scrobbleFromTrack(username, t)
	}

	if err := s.scrobbles.Replace(ctx, username, scrobbles); err != nil {
		return fmt.Errorf("replacing history: %w", err)
	}
	return nil
}

// History returns the user's stored scrobbles newest first; a now-playing
// entry sorts before everything else.
func (s *Service) History(ctx context.Context, username string) ([]db.Scrobble, error) {
	return s.scrobbles.ListForUser(ctx, username)
}

// Latest returns the user's single most recent scrobble.
// Returns db.ErrNotFound when the user has no history.
func (s *Service) Latest(ctx context.Context, username string) (*db.Scrobble, error) {
	return s.scrobbles.Latest(ctx, username)
}

// UpdateLocation writes the user's position and bumps their last-active time.
// The returned error is advisory; callers on a fire-and-forget path log it
// and move on rather than surfacing it.
func (s *Service) UpdateLocation(ctx context.Context, username string, lat, lon float64) error {
	if err := s.profiles.UpdateLocation(ctx, username, lat, lon); err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	return nil
}

// UpdateBio writes the user's bio. Advisory error, as with UpdateLocation;
// callers apply an optimistic local update first and never roll it back.
func (s *Service) UpdateBio(ctx context.Context, username, bio string) error {
	if err := s.profiles.UpdateBio(ctx, username, bio); err != nil {
		return fmt.Errorf("updating bio: %w", err)
	}
	return nil
}

// SetVisibility toggles whether the user may appear on the map.
func (s *Service) SetVisibility(ctx context.Context, username string, visible bool) error {
	if err := s.profiles.SetVisibility(ctx, username, visible); err != nil {
		return fmt.Errorf("updating visibility: %w", err)
	}
	return nil
}

// ActivePeers returns every other map-visible profile with a usable position.
// On failure it logs and returns an empty slice so location screens degrade
// to "no one found" instead of erroring out.
func (s *Service) ActivePeers(ctx context.Context, excludeUsername string) []db.Profile {
	profiles, err := s.profiles.ListVisible(ctx, excludeUsername)
	if err != nil {
		s.log.Error().Err(err).Msg("listing active peers failed")
		return []db.Profile{}
	}
	if profiles == nil {
		profiles = []db.Profile{}
	}
	return profiles
}

// profileFromUserInfo maps a Last.fm user.getInfo result to a profile row.
func profileFromUserInfo(info *lastfm.UserInfo) *db.Profile {
	profile := &db.Profile{
		Username:  info.Name,
		Playcount: info.Playcount,
	}
	if info.RealName != "" {
		profile.RealName = &info.RealName
	}
	if info.Country != "" {
		profile.Country = &info.Country
	}
	if info.ImageURL != "" {
		profile.ImageURL = &info.ImageURL
	}
	return profile
}

// scrobbleFromTrack maps a recent-tracks entry to a history row.
func scrobbleFromTrack(username string, t lastfm.Track) db.Scrobble {
	s := db.Scrobble{
		Username:   username,
		TrackName:  t.Name,
		ArtistName: t.Artist,
		PlayedAt:   t.PlayedAt,
		NowPlaying: t.NowPlaying,
	}
	if t.AlbumImage != "" {
		image := t.AlbumImage
		s.AlbumImage = &image
	}
	return s
}
