package song

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/harmonia/service/internal/storage"
)

// Default and maximum page sizes for the read surface.
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Service orchestrates the upload lifecycle and the catalog read surface.
// The blob write and the row write are not wrapped in a cross-store
// transaction; the partial-failure windows are logged for reconciliation,
// never rolled back.
type Service struct {
	repo  Repository
	store storage.Storage
}

// NewService creates a new catalog Service.
func NewService(repo Repository, store storage.Storage) *Service {
	return &Service{repo: repo, store: store}
}

// Upload validates the input, writes the blob, then inserts the catalog row.
// On a validation failure neither store is touched. If the row insert fails
// after the blob is written, the orphaned blob is logged and left for the
// reconciliation sweep — it is not deleted here.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput, file io.Reader) (*Song, error) {
	duration, verr := in.validate()
	if verr != nil {
		return nil, verr
	}

	key := storageKey(in.Filename)
	if err := s.store.Upload(ctx, key, file, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	var album *string
	if in.Album != "" {
		a := in.Album
		album = &a
	}

	created, err := s.repo.Create(ctx, &Song{
		Title:    in.Title,
		Artist:   in.Artist,
		Album:    album,
		Duration: duration,
		FileURL:  s.store.PublicURL(key),
		UserID:   userID,
	})
	if err != nil {
		log.Printf("song: INCONSISTENCY orphaned blob %q, insert failed: %v", key, err)
		return nil, fmt.Errorf("persist song: %w", err)
	}
	return created, nil
}

// Delete removes the song if and only if userID owns it, then deletes the
// blob. A blob-delete failure after the row is gone is logged and swallowed:
// from the caller's viewpoint the deletion happened.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}

	key := keyFromURL(deleted.FileURL)
	if err := s.store.Delete(ctx, key); err != nil {
		log.Printf("song: INCONSISTENCY leaked blob %q, row %s already deleted: %v", key, deleted.ID, err)
	}
	return nil
}

// List returns the catalog newest first, annotated with uploader names.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Song, error) {
	return s.repo.FindAll(ctx, clampLimit(limit), offset)
}

// Get fetches one song by ID, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Song, error) {
	return s.repo.FindByID(ctx, id)
}

// ListByUser returns the songs owned by userID, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Song, error) {
	return s.repo.FindByUser(ctx, userID, clampLimit(limit), offset)
}

// Search matches term case-insensitively against title, artist, or album.
func (s *Service) Search(ctx context.Context, term string, limit, offset int) ([]*Song, error) {
	return s.repo.Search(ctx, term, clampLimit(limit), offset)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
