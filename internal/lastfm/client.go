package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	baseURL   = "https://ws.audioscrobbler.com/2.0/"
	userAgent = "SpotFM/1.0.0"

	// DefaultRecentTracksLimit is the history window fetched when the caller
	// does not ask for a specific size.
	DefaultRecentTracksLimit = 20
)

// Last.fm API error codes.
const (
	errCodeAuthFailed    = 4
	errCodeInvalidParams = 6
	errCodeInvalidAPIKey = 10
	errCodeRateLimited   = 29
)

// Sentinel errors.
var (
	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when the API key is invalid.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrUserNotFound is returned when the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// AuthError is returned when the API rejects the supplied credentials. The
// message is the remote-supplied human-readable text and is safe to surface
// to the user verbatim.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("authentication failed (code %d)", e.Code)
}

// Client is a Last.fm API client.
type Client struct {
	apiKey       string
	sharedSecret string
	httpClient   *http.Client
	baseURL      string
}

// NewClient creates a new Last.fm API client from the provided configuration.
func NewClient(cfg *Config) *Client {
	return &Client{
		apiKey:       cfg.APIKey,
		sharedSecret: cfg.SharedSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// GetMobileSession authenticates the user with auth.getMobileSession and
// returns the canonical session. The request is form-encoded and signed over
// every parameter except format. Returns *AuthError when the API rejects the
// credentials.
func (c *Client) GetMobileSession(ctx context.Context, username, password string) (*Session, error) {
	params := map[string]string{
		"method":   "auth.getMobileSession",
		"username": username,
		"password": password,
		"api_key":  c.apiKey,
		"format":   "json",
	}
	params["api_sig"] = Sign(params, c.sharedSecret)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	body, err := c.postForm(ctx, form)
	if err != nil {
		return nil, err
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing session response: %w", err)
	}
	if resp.Session == nil {
		return nil, &AuthError{Code: errCodeAuthFailed}
	}

	return &Session{
		Name:       resp.Session.Name,
		Key:        resp.Session.Key,
		Subscriber: resp.Session.Subscriber != 0,
	}, nil
}

// GetUserInfo fetches the public profile for a username via user.getInfo.
func (c *Client) GetUserInfo(ctx context.Context, username string) (*UserInfo, error) {
	params := url.Values{
		"method":  {"user.getInfo"},
		"user":    {username},
		"api_key": {c.apiKey},
		"format":  {"json"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}

	var resp userInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing user info response: %w", err)
	}

	playcount, err := strconv.Atoi(resp.User.Playcount)
	if err != nil {
		playcount = 0
	}

	return &UserInfo{
		Name:      resp.User.Name,
		RealName:  resp.User.RealName,
		Country:   resp.User.Country,
		Playcount: playcount,
		ImageURL:  largestImage(resp.User.Images),
	}, nil
}

// GetRecentTracks fetches the user's most recent tracks via
// user.getrecenttracks. A non-positive limit falls back to
// DefaultRecentTracksLimit. An entry without a play date is marked NowPlaying.
func (c *Client) GetRecentTracks(ctx context.Context, username string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = DefaultRecentTracksLimit
	}

	params := url.Values{
		"method":  {"user.getrecenttracks"},
		"user":    {username},
		"api_key": {c.apiKey},
		"limit":   {strconv.Itoa(limit)},
		"format":  {"json"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetching recent tracks: %w", err)
	}

	var resp recentTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recent tracks response: %w", err)
	}

	tracks := make([]Track, 0, len(resp.RecentTracks.Tracks))
	for _, t := range resp.RecentTracks.Tracks {
		track := Track{
			Name:       t.Name,
			Artist:     t.Artist.Name,
			AlbumImage: largestImage(t.Images),
		}

		if t.Date != nil {
			uts, err := strconv.ParseInt(t.Date.UTS, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing track timestamp %q: %w", t.Date.UTS, err)
			}
			track.PlayedAt = time.Unix(uts, 0).UTC()
		} else {
			track.NowPlaying = true
		}

		tracks = append(tracks, track)
	}

	return tracks, nil
}

// get performs a GET request against the API root.
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.do(req)
}

// postForm performs a form-encoded POST against the API root.
func (c *Client) postForm(ctx context.Context, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// do executes the request and decodes the API error envelope if present.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errCodeAuthFailed:
			return nil, &AuthError{Code: apiErr.Error, Message: apiErr.Message}
		case errCodeInvalidParams:
			// user.getInfo and user.getrecenttracks report unknown users
			// with this code.
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, apiErr.Message)
		case errCodeInvalidAPIKey:
			return nil, ErrInvalidAPIKey
		case errCodeRateLimited:
			return nil, ErrRateLimited
		default:
			return nil, fmt.Errorf("API error %d: %s", apiErr.Error, apiErr.Message)
		}
	}

	return body, nil
}
