package db

import (
	"math"
	"sort"
	"testing"
	"time"
)

func TestScrobble_PlayedAtUTSRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		scrobble Scrobble
		wantUTS  int64
	}{
		{
			name:     "timestamped play",
			scrobble: Scrobble{PlayedAt: time.Unix(1700000000, 0).UTC()},
			wantUTS:  1700000000,
		},
		{
			name:     "now playing maps to the max sentinel",
			scrobble: Scrobble{NowPlaying: true},
			wantUTS:  math.MaxInt64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uts := tt.scrobble.playedAtUTS()
			if uts != tt.wantUTS {
				t.Fatalf("playedAtUTS() = %d, want %d", uts, tt.wantUTS)
			}

			var back Scrobble
			back.setPlayedAtUTS(uts)
			if back.NowPlaying != tt.scrobble.NowPlaying {
				t.Errorf("NowPlaying = %v, want %v", back.NowPlaying, tt.scrobble.NowPlaying)
			}
			if !back.NowPlaying && !back.PlayedAt.Equal(tt.scrobble.PlayedAt) {
				t.Errorf("PlayedAt = %v, want %v", back.PlayedAt, tt.scrobble.PlayedAt)
			}
		})
	}
}

func TestScrobble_SentinelSortsFirst(t *testing.T) {
	scrobbles := []Scrobble{
		{TrackName: "old", PlayedAt: time.Unix(1000, 0)},
		{TrackName: "playing", NowPlaying: true},
		{TrackName: "recent", PlayedAt: time.Unix(1700000000, 0)},
	}

	// Same ordering the store applies: date_uts descending.
	sort.Slice(scrobbles, func(i, j int) bool {
		return scrobbles[i].playedAtUTS() > scrobbles[j].playedAtUTS()
	})

	want := []string{"playing", "recent", "old"}
	for i, name := range want {
		if scrobbles[i].TrackName != name {
			t.Errorf("position %d = %q, want %q", i, scrobbles[i].TrackName, name)
		}
	}
}

func TestProfile_HasLocation(t *testing.T) {
	lat, lon := 41.2, -8.6
	placeholder := float64(-90)

	tests := []struct {
		name    string
		profile Profile
		want    bool
	}{
		{"both coordinates", Profile{Latitude: &lat, Longitude: &lon}, true},
		{"no coordinates", Profile{}, false},
		{"latitude only", Profile{Latitude: &lat}, false},
		{"placeholder latitude", Profile{Latitude: &placeholder, Longitude: &lon}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.HasLocation(); got != tt.want {
				t.Errorf("HasLocation() = %v, want %v", got, tt.want)
			}
		})
	}
}
