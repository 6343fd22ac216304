// Package song implements the catalog: upload lifecycle, owner-conditioned
// deletion, and the read surface over persisted songs.
package song

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Song is a catalog entry. FileURL is set once at creation and never
// replaced for the lifetime of the row. Field names follow the wire format.
type Song struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	Album        *string   `json:"album"`
	Duration     *int      `json:"duration"`
	FileURL      string    `json:"file_url"`
	UserID       string    `json:"user_id"`
	UploaderName string    `json:"uploader_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ErrNotFound is returned when a song does not exist — or, for the
// owner-conditioned delete, when the caller does not own it. The two cases
// are deliberately indistinguishable.
var ErrNotFound = errors.New("song not found")

// Repository abstracts song persistence so tests can substitute a fake.
type Repository interface {
	Create(ctx context.Context, s *Song) (*Song, error)
	FindAll(ctx context.Context, limit, offset int) ([]*Song, error)
	FindByID(ctx context.Context, id string) (*Song, error)
	FindByUser(ctx context.Context, userID string, limit, offset int) ([]*Song, error)
	Search(ctx context.Context, term string, limit, offset int) ([]*Song, error)
	Delete(ctx context.Context, id, userID string) (*Song, error)
}

// PostgresRepository handles all song database operations.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgresRepository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a song row and returns it annotated with the uploader's username.
func (r *PostgresRepository) Create(ctx context.Context, s *Song) (*Song, error) {
	created := &Song{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO songs (title, artist, album, duration, file_url, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, title, artist, album, duration, file_url, user_id, created_at,
		           (SELECT username FROM users WHERE id = user_id)`,
		s.Title, s.Artist, s.Album, s.Duration, s.FileURL, s.UserID,
	).Scan(&created.ID, &created.Title, &created.Artist, &created.Album, &created.Duration,
		&created.FileURL, &created.UserID, &created.CreatedAt, &created.UploaderName)
	if err != nil {
		return nil, fmt.Errorf("insert song: %w", err)
	}
	return created, nil
}

// FindAll returns all songs, newest first, each joined with the uploader's username.
func (r *PostgresRepository) FindAll(ctx context.Context, limit, offset int) ([]*Song, error) {
	rows, err := r.db.Query(ctx,
		`SELECT s.id, s.title, s.artist, s.album, s.duration, s.file_url, s.user_id, s.created_at,
		        u.username AS uploader_name
		 FROM songs s
		 JOIN users u ON s.user_id = u.id
		 ORDER BY s.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer rows.Close()
	return scanJoined(rows)
}

// FindByID fetches a single song joined with the uploader's username.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Song, error) {
	s := &Song{}
	err := r.db.QueryRow(ctx,
		`SELECT s.id, s.title, s.artist, s.album, s.duration, s.file_url, s.user_id, s.created_at,
		        u.username AS uploader_name
		 FROM songs s
		 JOIN users u ON s.user_id = u.id
		 WHERE s.id = $1`,
		id,
	).Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.Duration,
		&s.FileURL, &s.UserID, &s.CreatedAt, &s.UploaderName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get song by id: %w", err)
	}
	return s, nil
}

// FindByUser returns all songs owned by userID, newest first. No uploader
// join — the identity is already known to the caller.
func (r *PostgresRepository) FindByUser(ctx context.Context, userID string, limit, offset int) ([]*Song, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, artist, album, duration, file_url, user_id, created_at
		 FROM songs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list songs by user: %w", err)
	}
	defer rows.Close()

	songs := []*Song{}
	for rows.Next() {
		s := &Song{}
		if err := rows.Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.Duration,
			&s.FileURL, &s.UserID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

// Search matches term case-insensitively as a substring of title, artist,
// or album, newest first.
func (r *PostgresRepository) Search(ctx context.Context, term string, limit, offset int) ([]*Song, error) {
	pattern := "%" + term + "%"
	rows, err := r.db.Query(ctx,
		`SELECT s.id, s.title, s.artist, s.album, s.duration, s.file_url, s.user_id, s.created_at,
		        u.username AS uploader_name
		 FROM songs s
		 JOIN users u ON s.user_id = u.id
		 WHERE s.title ILIKE $1 OR s.artist ILIKE $1 OR s.album ILIKE $1
		 ORDER BY s.created_at DESC
		 LIMIT $2 OFFSET $3`,
		pattern, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("search songs: %w", err)
	}
	defer rows.Close()
	return scanJoined(rows)
}

// Delete removes the song in a single statement conditioned on both the song
// ID and the owner ID, returning the deleted row. ErrNotFound covers both a
// missing song and a non-owning caller.
func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) (*Song, error) {
	s := &Song{}
	err := r.db.QueryRow(ctx,
		`DELETE FROM songs
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, title, artist, album, duration, file_url, user_id, created_at`,
		id, userID,
	).Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.Duration,
		&s.FileURL, &s.UserID, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete song: %w", err)
	}
	return s, nil
}

// FileURLs returns the retrieval locator of every catalog row. Used by the
// reconciliation sweep, not by the request path.
func (r *PostgresRepository) FileURLs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT file_url FROM songs`)
	if err != nil {
		return nil, fmt.Errorf("list file urls: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan file url: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file urls: %w", err)
	}
	return urls, nil
}

func scanJoined(rows pgx.Rows) ([]*Song, error) {
	songs := []*Song{}
	for rows.Next() {
		s := &Song{}
		if err := rows.Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.Duration,
			&s.FileURL, &s.UserID, &s.CreatedAt, &s.UploaderName); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}
