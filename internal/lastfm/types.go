package lastfm

import "time"

// Session is the authenticated identity returned by auth.getMobileSession.
// Name is the canonical, case-normalized username and is authoritative over
// whatever the user typed at login.
type Session struct {
	Name       string
	Key        string
	Subscriber bool
}

// UserInfo is the profile data returned by user.getInfo.
type UserInfo struct {
	Name      string
	RealName  string
	Country   string
	Playcount int
	ImageURL  string // largest available image, empty if none
}

// Track is a single recent-tracks entry. A track with NowPlaying set has no
// play timestamp; PlayedAt is the zero time in that case.
type Track struct {
	Name       string
	Artist     string
	AlbumImage string // largest available image, empty if none
	PlayedAt   time.Time
	NowPlaying bool
}

// image is the Last.fm image envelope, shared across responses.
type image struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// largestImage returns the URL of the last (largest) non-blank image.
func largestImage(images []image) string {
	for i := len(images) - 1; i >= 0; i-- {
		if images[i].URL != "" {
			return images[i].URL
		}
	}
	return ""
}

// sessionResponse is the JSON response for auth.getMobileSession.
type sessionResponse struct {
	Session *struct {
		Name       string `json:"name"`
		Key        string `json:"key"`
		Subscriber int    `json:"subscriber"`
	} `json:"session"`
}

// userInfoResponse is the JSON response for user.getInfo.
type userInfoResponse struct {
	User struct {
		Name      string  `json:"name"`
		RealName  string  `json:"realname"`
		Country   string  `json:"country"`
		Playcount string  `json:"playcount"`
		Images    []image `json:"image"`
	} `json:"user"`
}

// recentTracksResponse is the JSON response for user.getrecenttracks.
type recentTracksResponse struct {
	RecentTracks struct {
		Tracks []struct {
			Name   string `json:"name"`
			Artist struct {
				Name string `json:"#text"`
			} `json:"artist"`
			Images []image `json:"image"`
			Date   *struct {
				UTS string `json:"uts"`
			} `json:"date"` // absent while the track is still playing
			Attr *struct {
				NowPlaying string `json:"nowplaying"`
			} `json:"@attr"`
		} `json:"track"`
	} `json:"recenttracks"`
}

// apiError is the Last.fm API error envelope.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
