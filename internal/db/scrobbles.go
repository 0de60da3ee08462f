package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScrobbleRepository handles listening-history database operations.
type ScrobbleRepository struct {
	pool *pgxpool.Pool
}

// Replace swaps the user's entire history window for the given batch inside a
// single transaction: the prior rows are deleted and the new batch inserted,
// so a reader never observes a half-replaced history. An empty batch is a
// no-op and leaves existing rows in place.
func (r *ScrobbleRepository) Replace(ctx context.Context, username string, scrobbles []Scrobble) error {
	if len(scrobbles) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM scrobbles WHERE lower(username) = lower($1)`, username); err != nil {
		return fmt.Errorf("deleting old scrobbles: %w", err)
	}

	query := `
		INSERT INTO scrobbles (id, username, track_name, artist_name, album_image, date_uts)
		SELECT * FROM unnest($1::uuid[], $2::text[], $3::text[], $4::text[], $5::text[], $6::bigint[])
	`

	ids := make([]uuid.UUID, len(scrobbles))
	usernames := make([]string, len(scrobbles))
	trackNames := make([]string, len(scrobbles))
	artistNames := make([]string, len(scrobbles))
	albumImages := make([]*string, len(scrobbles))
	dateUTS := make([]int64, len(scrobbles))

	for i, s := range scrobbles {
		id := s.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ids[i] = id
		usernames[i] = s.Username
		trackNames[i] = s.TrackName
		artistNames[i] = s.ArtistName
		albumImages[i] = s.AlbumImage
		dateUTS[i] = s.playedAtUTS()
	}

	if _, err := tx.Exec(ctx, query, ids, usernames, trackNames, artistNames, albumImages, dateUTS); err != nil {
		return fmt.Errorf("inserting scrobbles: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing scrobble replace: %w", err)
	}
	return nil
}

// ListForUser returns the user's scrobbles newest first. A now-playing row
// sorts before every timestamped row.
func (r *ScrobbleRepository) ListForUser(ctx context.Context, username string) ([]Scrobble, error) {
	query := `
		SELECT id, username, track_name, artist_name, album_image, date_uts
		FROM scrobbles
		WHERE lower(username) = lower($1)
		ORDER BY date_uts DESC
	`
	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("querying scrobbles: %w", err)
	}
	defer rows.Close()

	var scrobbles []Scrobble
	for rows.Next() {
		s, err := scanScrobble(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scrobble: %w", err)
		}
		scrobbles = append(scrobbles, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scrobbles: %w", err)
	}
	return scrobbles, nil
}

// Latest returns the user's single most recent scrobble.
// Returns ErrNotFound when the user has no history.
func (r *ScrobbleRepository) Latest(ctx context.Context, username string) (*Scrobble, error) {
	query := `
		SELECT id, username, track_name, artist_name, album_image, date_uts
		FROM scrobbles
		WHERE lower(username) = lower($1)
		ORDER BY date_uts DESC
		LIMIT 1
	`
	s, err := scanScrobble(r.pool.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest scrobble: %w", err)
	}
	return s, nil
}

func scanScrobble(row pgx.Row) (*Scrobble, error) {
	var s Scrobble
	var uts int64
	err := row.Scan(
		&s.ID,
		&s.Username,
		&s.TrackName,
		&s.ArtistName,
		&s.AlbumImage,
		&uts,
	)
	if err != nil {
		return nil, err
	}
	s.setPlayedAtUTS(uts)
	return &s, nil
}
