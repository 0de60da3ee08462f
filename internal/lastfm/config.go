// Package lastfm provides the Last.fm API client used for authentication,
// profile lookups and recent-track history.
package lastfm

import (
	"errors"
	"os"
)

// Config errors.
var (
	// ErrMissingAPIKey is returned when LASTFM_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing LASTFM_API_KEY environment variable")

	// ErrMissingSharedSecret is returned when LASTFM_SHARED_SECRET is not set.
	ErrMissingSharedSecret = errors.New("missing LASTFM_SHARED_SECRET environment variable")
)

// Config holds Last.fm API credentials.
type Config struct {
	APIKey       string
	SharedSecret string
}

// LoadConfig reads Last.fm configuration from environment variables.
func LoadConfig() (*Config, error) {
	apiKey := os.Getenv("LASTFM_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	secret := os.Getenv("LASTFM_SHARED_SECRET")
	if secret == "" {
		return nil, ErrMissingSharedSecret
	}

	return &Config{APIKey: apiKey, SharedSecret: secret}, nil
}
