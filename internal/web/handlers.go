package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"spotfm/internal/db"
	"spotfm/internal/lastfm"
	"spotfm/internal/nearby"
	"spotfm/internal/session"
)

// AuthService is the authentication surface the handlers need.
// Implemented by *auth.Service.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*session.Session, error)
	Logout() error
}

// SyncService is the sync surface the handlers need.
// Implemented by *sync.Service.
type SyncService interface {
	Profile(ctx context.Context, username string) (*db.Profile, error)
	RefreshProfile(ctx context.Context, username string) (*db.Profile, error)
	RefreshHistory(ctx context.Context, username string) error
	History(ctx context.Context, username string) ([]db.Scrobble, error)
	Latest(ctx context.Context, username string) (*db.Scrobble, error)
	UpdateLocation(ctx context.Context, username string, lat, lon float64) error
	UpdateBio(ctx context.Context, username, bio string) error
	SetVisibility(ctx context.Context, username string, visible bool) error
	ActivePeers(ctx context.Context, excludeUsername string) []db.Profile
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	auth     AuthService
	sync     SyncService
	sessions *SessionStore
	log      zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(auth AuthService, sync SyncService, sessions *SessionStore, log zerolog.Logger) *Handlers {
	return &Handlers{
		auth:     auth,
		sync:     sync,
		sessions: sessions,
		log:      log,
	}
}

// profileView is the JSON shape of a user profile.
type profileView struct {
	Username     string     `json:"username"`
	RealName     *string    `json:"real_name,omitempty"`
	Country      *string    `json:"country,omitempty"`
	Playcount    int        `json:"playcount"`
	ImageURL     *string    `json:"image_url,omitempty"`
	Bio          *string    `json:"bio,omitempty"`
	VisibleOnMap bool       `json:"is_visible_on_map"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
}

func newProfileView(p *db.Profile) profileView {
	return profileView{
		Username:     p.Username,
		RealName:     p.RealName,
		Country:      p.Country,
		Playcount:    p.Playcount,
		ImageURL:     p.ImageURL,
		Bio:          p.Bio,
		VisibleOnMap: p.VisibleOnMap,
		LastActiveAt: p.LastActiveAt,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
	}
}

// scrobbleView is the JSON shape of a listening-history entry.
type scrobbleView struct {
	TrackName  string     `json:"track_name"`
	ArtistName string     `json:"artist_name"`
	AlbumImage *string    `json:"album_image,omitempty"`
	PlayedAt   *time.Time `json:"played_at,omitempty"` // absent while now playing
	NowPlaying bool       `json:"now_playing"`
}

func newScrobbleView(s *db.Scrobble) scrobbleView {
	v := scrobbleView{
		TrackName:  s.TrackName,
		ArtistName: s.ArtistName,
		AlbumImage: s.AlbumImage,
		NowPlaying: s.NowPlaying,
	}
	if !s.NowPlaying {
		playedAt := s.PlayedAt
		v.PlayedAt = &playedAt
	}
	return v
}

// candidateView is the JSON shape of a nearby-user result.
type candidateView struct {
	Profile    profileView `json:"profile"`
	DistanceKm float64     `json:"distance_km"`
}

// Login handles POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var authErr *lastfm.AuthError
		if errors.As(err, &authErr) {
			respondError(w, http.StatusUnauthorized, authErr.Error())
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		respondError(w, http.StatusBadGateway, "Last.fm is unreachable")
		return
	}

	webSess, err := h.sessions.Create(sess.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "creating session")
		return
	}
	h.sessions.SetCookie(w, webSess)

	respondJSON(w, http.StatusOK, map[string]any{
		"username":   sess.Username,
		"subscriber": sess.Subscriber,
	})
}

// Logout handles POST /auth/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := h.sessions.GetFromRequest(r); sess != nil {
		h.sessions.Delete(sess.ID)
	}
	h.sessions.ClearCookie(w)

	if err := h.auth.Logout(); err != nil {
		h.log.Warn().Err(err).Msg("clearing saved session failed")
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	profile, err := h.sync.Profile(r.Context(), sess.Username)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "profile not synced yet")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "loading profile")
		return
	}
	respondJSON(w, http.StatusOK, newProfileView(profile))
}

// RefreshMe handles POST /me/refresh.
func (h *Handlers) RefreshMe(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	profile, err := h.sync.RefreshProfile(r.Context(), sess.Username)
	if err != nil {
		h.log.Error().Err(err).Str("username", sess.Username).Msg("profile refresh failed")
		respondError(w, http.StatusBadGateway, "refreshing profile from Last.fm")
		return
	}
	respondJSON(w, http.StatusOK, newProfileView(profile))
}

// Scrobbles handles GET /me/scrobbles. With ?refresh=1 the stored history is
// replaced from Last.fm first; a refresh failure is surfaced, not hidden.
func (h *Handlers) Scrobbles(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	if r.URL.Query().Get("refresh") == "1" {
		if err := h.sync.RefreshHistory(r.Context(), sess.Username); err != nil {
			h.log.Error().Err(err).Str("username", sess.Username).Msg("history refresh failed")
			respondError(w, http.StatusBadGateway, "refreshing history from Last.fm")
			return
		}
	}

	scrobbles, err := h.sync.History(r.Context(), sess.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "loading history")
		return
	}

	views := make([]scrobbleView, len(scrobbles))
	for i := range scrobbles {
		views[i] = newScrobbleView(&scrobbles[i])
	}
	respondJSON(w, http.StatusOK, views)
}

// LatestScrobble handles GET /me/scrobbles/latest.
func (h *Handlers) LatestScrobble(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	scrobble, err := h.sync.Latest(r.Context(), sess.Username)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no scrobbles yet")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "loading latest scrobble")
		return
	}
	respondJSON(w, http.StatusOK, newScrobbleView(scrobble))
}

// UpdateLocation handles PUT /me/location. The write is fire-and-forget:
// failures are logged, the client always gets 202.
func (h *Handlers) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	var req struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		respondError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	if err := h.sync.UpdateLocation(r.Context(), sess.Username, *req.Latitude, *req.Longitude); err != nil {
		h.log.Warn().Err(err).Str("username", sess.Username).Msg("location update failed")
	}
	w.WriteHeader(http.StatusAccepted)
}

// UpdateBio handles PUT /me/bio. Fire-and-forget like UpdateLocation.
func (h *Handlers) UpdateBio(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	var req struct {
		Bio *string `json:"bio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Bio == nil {
		respondError(w, http.StatusBadRequest, "bio is required")
		return
	}

	if err := h.sync.UpdateBio(r.Context(), sess.Username, *req.Bio); err != nil {
		h.log.Warn().Err(err).Str("username", sess.Username).Msg("bio update failed")
	}
	w.WriteHeader(http.StatusAccepted)
}

// UpdateVisibility handles PUT /me/visibility.
func (h *Handlers) UpdateVisibility(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	var req struct {
		Visible *bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Visible == nil {
		respondError(w, http.StatusBadRequest, "visible is required")
		return
	}

	if err := h.sync.SetVisibility(r.Context(), sess.Username, *req.Visible); err != nil {
		respondError(w, http.StatusInternalServerError, "updating visibility")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Nearby handles GET /nearby?lat=..&lon=..&radius_km=.. and returns other
// map-visible users within the radius, closest first. An empty array is a
// valid result and distinct from an error status.
func (h *Handlers) Nearby(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		respondError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	radius := nearby.DefaultRadiusKm
	if raw := r.URL.Query().Get("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "radius_km must be a positive number")
			return
		}
		radius = parsed
	}

	peers := h.sync.ActivePeers(r.Context(), sess.Username)
	ranked := nearby.RankByDistance(lat, lon, peers, radius)

	views := make([]candidateView, len(ranked))
	for i, c := range ranked {
		views[i] = candidateView{
			Profile:    newProfileView(&c.Profile),
			DistanceKm: c.DistanceKm,
		}
	}
	respondJSON(w, http.StatusOK, views)
}

// GetUser handles GET /users/{username}.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.sync.Profile(r.Context(), username)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "loading profile")
		return
	}
	respondJSON(w, http.StatusOK, newProfileView(profile))
}

// requireSession resolves the request's session, writing a 401 and returning
// nil when the request is unauthenticated.
func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) *Session {
	sess := h.sessions.GetFromRequest(r)
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "not logged in")
	}
	return sess
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
