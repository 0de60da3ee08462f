package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles user profile database operations.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

const profileColumns = `username, real_name, country, playcount, image_url, bio,
	is_visible_on_map, last_active_at, latitude, longitude`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.Username,
		&p.RealName,
		&p.Country,
		&p.Playcount,
		&p.ImageURL,
		&p.Bio,
		&p.VisibleOnMap,
		&p.LastActiveAt,
		&p.Latitude,
		&p.Longitude,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUsername retrieves a profile by case-insensitive username match.
func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM user_profiles
		WHERE lower(username) = lower($1)
	`
	profile, err := scanProfile(r.pool.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return profile, nil
}

// Upsert creates or updates a profile keyed on username. Only the columns
// sourced from the remote API are written on conflict; bio, visibility and
// location are locally edited fields and stay untouched.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *Profile) error {
	query := `
		INSERT INTO user_profiles (username, real_name, country, playcount, image_url, is_visible_on_map)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO UPDATE SET
			real_name = EXCLUDED.real_name,
			country = EXCLUDED.country,
			playcount = EXCLUDED.playcount,
			image_url = EXCLUDED.image_url
	`
	_, err := r.pool.Exec(ctx, query,
		profile.Username,
		profile.RealName,
		profile.Country,
		profile.Playcount,
		profile.ImageURL,
		profile.VisibleOnMap,
	)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

// UpdateLocation sets the profile's coordinates and bumps last_active_at.
func (r *ProfileRepository) UpdateLocation(ctx context.Context, username string, lat, lon float64) error {
	query := `
		UPDATE user_profiles
		SET latitude = $2, longitude = $3, last_active_at = $4
		WHERE username = $1
	`
	result, err := r.pool.Exec(ctx, query, username, lat, lon, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBio sets the profile's bio text.
func (r *ProfileRepository) UpdateBio(ctx context.Context, username, bio string) error {
	query := `UPDATE user_profiles SET bio = $2 WHERE username = $1`
	result, err := r.pool.Exec(ctx, query, username, bio)
	if err != nil {
		return fmt.Errorf("updating bio: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVisibility toggles whether the profile may appear on the map.
func (r *ProfileRepository) SetVisibility(ctx context.Context, username string, visible bool) error {
	query := `UPDATE user_profiles SET is_visible_on_map = $2 WHERE username = $1`
	result, err := r.pool.Exec(ctx, query, username, visible)
	if err != nil {
		return fmt.Errorf("updating visibility: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVisible returns every profile that opted into map visibility, excluding
// the named user and anyone without a real position fix.
func (r *ProfileRepository) ListVisible(ctx context.Context, excludeUsername string) ([]Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM user_profiles
		WHERE is_visible_on_map = true
		  AND lower(username) <> lower($1)
		  AND latitude IS NOT NULL
		  AND latitude <> $2
	`
	rows, err := r.pool.Query(ctx, query, excludeUsername, noLocationLatitude)
	if err != nil {
		return nil, fmt.Errorf("querying visible profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return profiles, nil
}
