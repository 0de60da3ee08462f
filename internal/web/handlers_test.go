package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"spotfm/internal/db"
	"spotfm/internal/lastfm"
	"spotfm/internal/session"
)

// fakeAuth implements AuthService.
type fakeAuth struct {
	session *session.Session
	err     error
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (*session.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeAuth) Logout() error { return nil }

// fakeSync implements SyncService.
type fakeSync struct {
	profile       *db.Profile
	history       []db.Scrobble
	peers         []db.Profile
	refreshErr    error
	historyErr    error
	latestErr     error
	profileErr    error
	locationCalls int
}

func (f *fakeSync) Profile(_ context.Context, _ string) (*db.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeSync) RefreshProfile(_ context.Context, _ string) (*db.Profile, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.profile, nil
}

func (f *fakeSync) RefreshHistory(_ context.Context, _ string) error {
	return f.refreshErr
}

func (f *fakeSync) History(_ context.Context, _ string) ([]db.Scrobble, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeSync) Latest(_ context.Context, _ string) (*db.Scrobble, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	if len(f.history) == 0 {
		return nil, db.ErrNotFound
	}
	return &f.history[0], nil
}

func (f *fakeSync) UpdateLocation(_ context.Context, _ string, _, _ float64) error {
	f.locationCalls++
	return nil
}

func (f *fakeSync) UpdateBio(_ context.Context, _, _ string) error { return nil }

func (f *fakeSync) SetVisibility(_ context.Context, _ string, _ bool) error { return nil }

func (f *fakeSync) ActivePeers(_ context.Context, _ string) []db.Profile {
	if f.peers == nil {
		return []db.Profile{}
	}
	return f.peers
}

func newTestServer(auth AuthService, sync SyncService) *Server {
	return NewServer(ServerConfig{
		Auth: auth,
		Sync: sync,
		Log:  zerolog.Nop(),
	})
}

// loginAs creates a web session directly and returns its cookie.
func loginAs(s *Server, username string) *http.Cookie {
	sess, _ := s.sessions.Create(username)
	return &http.Cookie{Name: sessionCookieName, Value: sess.ID}
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name       string
		auth       *fakeAuth
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			auth:       &fakeAuth{session: &session.Session{Username: "Alice", Key: "k", Subscriber: true}},
			body:       `{"username":"alice","password":"hunter2"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "credentials rejected surfaces remote message",
			auth:       &fakeAuth{err: &lastfm.AuthError{Code: 4, Message: "Authentication Failed"}},
			body:       `{"username":"alice","password":"wrong"}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Authentication Failed",
		},
		{
			name:       "transport failure",
			auth:       &fakeAuth{err: errors.New("connection refused")},
			body:       `{"username":"alice","password":"hunter2"}`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "missing fields",
			auth:       &fakeAuth{},
			body:       `{"username":"alice"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(tt.auth, &fakeSync{})

			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusOK {
				found := false
				for _, c := range rec.Result().Cookies() {
					if c.Name == sessionCookieName && c.Value != "" {
						found = true
					}
				}
				if !found {
					t.Error("successful login must set the session cookie")
				}
				return
			}

			if tt.wantError != "" {
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decoding error body: %v", err)
				}
				if body["error"] != tt.wantError {
					t.Errorf("error = %q, want %q", body["error"], tt.wantError)
				}
			}
		})
	}
}

func TestMe_RequiresSession(t *testing.T) {
	server := newTestServer(&fakeAuth{}, &fakeSync{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMe(t *testing.T) {
	bio := "hello"
	server := newTestServer(&fakeAuth{}, &fakeSync{
		profile: &db.Profile{Username: "Alice", Playcount: 10, Bio: &bio},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(loginAs(server, "Alice"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got profileView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got.Username != "Alice" || got.Playcount != 10 {
		t.Errorf("profile = %+v", got)
	}
}

func TestMe_NotSynced(t *testing.T) {
	server := newTestServer(&fakeAuth{}, &fakeSync{profileErr: db.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(loginAs(server, "Alice"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestScrobbles_RefreshFailurePropagates(t *testing.T) {
	server := newTestServer(&fakeAuth{}, &fakeSync{refreshErr: errors.New("timeout")})

	req := httptest.NewRequest(http.MethodGet, "/me/scrobbles?refresh=1", nil)
	req.AddCookie(loginAs(server, "Alice"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestLatestScrobble_Empty(t *testing.T) {
	server := newTestServer(&fakeAuth{}, &fakeSync{})

	req := httptest.NewRequest(http.MethodGet, "/me/scrobbles/latest", nil)
	req.AddCookie(loginAs(server, "Alice"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestNearby(t *testing.T) {
	lat1, lon1 := 0.01, 0.0
	lat2, lon2 := 0.02, 0.0
	server := newTestServer(&fakeAuth{}, &fakeSync{peers: []db.Profile{
		{Username: "farther", VisibleOnMap: true, Latitude: &lat2, Longitude: &lon2},
		{Username: "near", VisibleOnMap: true, Latitude: &lat1, Longitude: &lon1},
	}})

	req := httptest.NewRequest(http.MethodGet, "/nearby?lat=0&lon=0&radius_km=10", nil)
	req.AddCookie(loginAs(server, "Alice"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []candidateView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Profile.Username != "near" {
		t.Errorf("first candidate = %q, want near", got[0].Profile.Username)
	}
}

func TestNearby_EmptyIsValidResult(t *testing.T) {
	server := newTestServer(&fakeAuth{}, &fakeSync{})

	req := httptest.NewRequest(http.MethodGet, "/nearby?lat=0&lon=0", nil)
	req.AddCookie(loginAs(server, "Alice"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	// An empty neighbourhood is a 200 with an empty array, never an error
	// status.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestNearby_MissingCoordinates(t *testing.T) {
	server := newTestServer(&fakeAuth{}, &fakeSync{})

	req := httptest.NewRequest(http.MethodGet, "/nearby", nil)
	req.AddCookie(loginAs(server, "Alice"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateLocation_FireAndForget(t *testing.T) {
	syncSvc := &fakeSync{}
	server := newTestServer(&fakeAuth{}, syncSvc)

	req := httptest.NewRequest(http.MethodPut, "/me/location",
		strings.NewReader(`{"latitude":41.1579,"longitude":-8.6291}`))
	req.AddCookie(loginAs(server, "Alice"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if syncSvc.locationCalls != 1 {
		t.Errorf("locationCalls = %d, want 1", syncSvc.locationCalls)
	}
}
