package song

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harmonia/service/internal/storage"
)

// memRepo is an in-memory Repository with the same contract as the Postgres
// implementation: newest-first reads, ILIKE-style search, and a delete
// conditioned on both song ID and owner ID.
type memRepo struct {
	mu        sync.Mutex
	songs     []*Song
	usernames map[string]string // user ID → username for the uploader join
	createErr error
	seq       int
}

func newMemRepo() *memRepo {
	return &memRepo{usernames: map[string]string{}}
}

func (r *memRepo) Create(ctx context.Context, s *Song) (*Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	created := *s
	created.ID = uuid.NewString()
	// Strictly increasing timestamps so newest-first ordering is deterministic.
	created.CreatedAt = time.Unix(1700000000, 0).Add(time.Duration(r.seq) * time.Second)
	created.UploaderName = r.usernames[s.UserID]
	r.songs = append(r.songs, &created)
	return &created, nil
}

func (r *memRepo) FindAll(ctx context.Context, limit, offset int) ([]*Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return page(r.newestFirst(), limit, offset), nil
}

func (r *memRepo) FindByID(ctx context.Context, id string) (*Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.songs {
		if s.ID == id {
			c := *s
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) FindByUser(ctx context.Context, userID string, limit, offset int) ([]*Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owned := []*Song{}
	for _, s := range r.newestFirst() {
		if s.UserID == userID {
			c := *s
			c.UploaderName = ""
			owned = append(owned, &c)
		}
	}
	return page(owned, limit, offset), nil
}

func (r *memRepo) Search(ctx context.Context, term string, limit, offset int) ([]*Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	term = strings.ToLower(term)
	matched := []*Song{}
	for _, s := range r.newestFirst() {
		album := ""
		if s.Album != nil {
			album = *s.Album
		}
		if strings.Contains(strings.ToLower(s.Title), term) ||
			strings.Contains(strings.ToLower(s.Artist), term) ||
			strings.Contains(strings.ToLower(album), term) {
			matched = append(matched, s)
		}
	}
	return page(matched, limit, offset), nil
}

func (r *memRepo) Delete(ctx context.Context, id, userID string) (*Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.songs {
		if s.ID == id && s.UserID == userID {
			deleted := *s
			r.songs = append(r.songs[:i], r.songs[i+1:]...)
			return &deleted, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) FileURLs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	urls := []string{}
	for _, s := range r.songs {
		urls = append(urls, s.FileURL)
	}
	return urls, nil
}

func (r *memRepo) newestFirst() []*Song {
	out := make([]*Song, 0, len(r.songs))
	for _, s := range r.songs {
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func page(songs []*Song, limit, offset int) []*Song {
	if offset >= len(songs) {
		return []*Song{}
	}
	end := offset + limit
	if end > len(songs) {
		end = len(songs)
	}
	return songs[offset:end]
}

// memStorage is an in-memory storage.Storage recording uploaded bytes so
// tests can check that a song's locator resolves to exactly what was sent.
type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	modified  map[string]time.Time
	uploadErr error
	deleteErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, modified: map[string]time.Time{}}
}

func (m *memStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.modified[key] = time.Now()
	return nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, key)
	delete(m.modified, key)
	return nil
}

func (m *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStorage) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := []storage.ObjectInfo{}
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, storage.ObjectInfo{
				Key:          key,
				Size:         int64(len(data)),
				LastModified: m.modified[key],
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (m *memStorage) PublicURL(key string) string {
	return "http://localhost:9000/harmonia/" + key
}

func (m *memStorage) bytesFor(fileURL string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[keyFromURL(fileURL)]
	return data, ok
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

var errStoreDown = errors.New("store unavailable")

// validUpload is a well-formed upload input with a 1 KiB payload.
func validUpload(title, artist string) (UploadInput, io.Reader) {
	payload := bytes.Repeat([]byte{0xAB}, 1024)
	return UploadInput{
		Title:       title,
		Artist:      artist,
		Filename:    "track.mp3",
		ContentType: "audio/mpeg",
		Size:        int64(len(payload)),
	}, bytes.NewReader(payload)
}
