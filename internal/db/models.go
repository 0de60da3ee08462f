package db

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// noLocationLatitude is the placeholder latitude written by clients that have
// no position fix yet. Profiles carrying it are never treated as locatable.
const noLocationLatitude = -90

// nowPlayingUTS is the date_uts value stored for a track that is still
// playing. Using the maximum representable timestamp keeps now-playing rows
// first under descending-time ordering. The value exists only at the column
// boundary; domain code uses the NowPlaying flag.
const nowPlayingUTS = math.MaxInt64

// Profile is a user profile row. Username is the primary key and always the
// canonical name returned by Last.fm.
type Profile struct {
	Username     string
	RealName     *string // nullable
	Country      *string // nullable
	Playcount    int
	ImageURL     *string // nullable
	Bio          *string // nullable
	VisibleOnMap bool
	LastActiveAt *time.Time // nullable
	Latitude     *float64   // nullable
	Longitude    *float64
}

// HasLocation reports whether the profile carries a usable coordinate pair.
func (p *Profile) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil && *p.Latitude != noLocationLatitude
}

// Scrobble is a single listening-history row.
type Scrobble struct {
	ID         uuid.UUID
	Username   string
	TrackName  string
	ArtistName string
	AlbumImage *string // nullable
	PlayedAt   time.Time
	NowPlaying bool
}

// playedAtUTS maps the scrobble's play time to its date_uts column value.
func (s *Scrobble) playedAtUTS() int64 {
	if s.NowPlaying {
		return nowPlayingUTS
	}
	return s.PlayedAt.Unix()
}

// setPlayedAtUTS maps a date_uts column value back onto the scrobble.
func (s *Scrobble) setPlayedAtUTS(uts int64) {
	if uts == nowPlayingUTS {
		s.NowPlaying = true
		s.PlayedAt = time.Time{}
		return
	}
	s.PlayedAt = time.Unix(uts, 0).UTC()
}
