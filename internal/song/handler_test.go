package song

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia/service/internal/middleware"
)

const testSecret = "test-secret"

func testToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// newTestRouter mirrors the /api/music wiring of cmd/api.
func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Route("/api/music", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/user/{userId}", h.ListByUser)
		r.Get("/{id}", h.Get)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(testSecret))
			r.Post("/upload", h.Upload)
			r.Delete("/{id}", h.Delete)
		})
	})
	return r
}

func multipartUpload(t *testing.T, fields map[string]string, filename, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func doUpload(t *testing.T, router http.Handler, token string, fields map[string]string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, fields, "track.mp3", "audio/mpeg", payload)
	req := httptest.NewRequest(http.MethodPost, "/api/music/upload", body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(into))
}

// The end-to-end ownership scenario: A uploads, B cannot delete, A can,
// and afterwards the song is gone.
func TestUploadDeleteLifecycle(t *testing.T) {
	t.Parallel()
	svc, _, store := newTestService()
	router := newTestRouter(svc)

	payload := bytes.Repeat([]byte{0x42}, 1<<20)
	rec := doUpload(t, router, testToken(t, "user-a"),
		map[string]string{"title": "Song1", "artist": "Artist1"}, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var up uploadResponse
	decode(t, rec, &up)
	assert.Equal(t, "Song uploaded successfully", up.Message)
	require.NotNil(t, up.Song)
	assert.Equal(t, "user-a", up.Song.UserID)
	assert.NotEmpty(t, up.Song.FileURL)

	data, ok := store.bytesFor(up.Song.FileURL)
	require.True(t, ok)
	assert.Equal(t, payload, data)

	// User B attempts the delete: 404, intentionally ambiguous.
	req := httptest.NewRequest(http.MethodDelete, "/api/music/"+up.Song.ID, nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "user-b"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// User A deletes it.
	req = httptest.NewRequest(http.MethodDelete, "/api/music/"+up.Song.ID, nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "user-a"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var msg messageResponse
	decode(t, rec, &msg)
	assert.Equal(t, "Song deleted successfully", msg.Message)

	// The song is gone.
	req = httptest.NewRequest(http.MethodGet, "/api/music/"+up.Song.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_RequiresAuth(t *testing.T) {
	t.Parallel()
	svc, _, store := newTestService()
	router := newTestRouter(svc)

	rec := doUpload(t, router, "", map[string]string{"title": "Song1", "artist": "Artist1"}, []byte("xx"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, store.count(), "nothing may be stored for an unauthenticated request")
}

func TestUpload_ValidationErrorBody(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	router := newTestRouter(svc)

	body, contentType := multipartUpload(t,
		map[string]string{"title": "", "artist": "Artist1"}, "pic.png", "image/png", []byte("not audio"))
	req := httptest.NewRequest(http.MethodPost, "/api/music/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "user-a"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var verr ValidationError
	decode(t, rec, &verr)
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["title"])
	assert.True(t, fields["audio"])
}

func TestList_DefaultsAndEnvelope(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	router := newTestRouter(svc)

	for i := 0; i < 3; i++ {
		rec := doUpload(t, router, testToken(t, "user-a"),
			map[string]string{"title": fmt.Sprintf("S%d", i), "artist": "Artist1"}, []byte("xx"))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/music", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list listResponse
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, DefaultLimit, list.Limit)
	require.Len(t, list.Songs, 3)
	assert.Equal(t, "S2", list.Songs[0].Title)
	assert.Equal(t, "alice", list.Songs[0].UploaderName)
}

func TestList_EmptyCatalogIsEmptyArray(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/music", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"songs":[]`)
}

func TestList_SearchParam(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	router := newTestRouter(svc)

	rec := doUpload(t, router, testToken(t, "user-a"),
		map[string]string{"title": "ABCdef", "artist": "Artist1"}, []byte("xx"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doUpload(t, router, testToken(t, "user-a"),
		map[string]string{"title": "Other", "artist": "Artist2"}, []byte("xx"))
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/music?search=abc", nil)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	var list listResponse
	decode(t, rec2, &list)
	require.Len(t, list.Songs, 1)
	assert.Equal(t, "ABCdef", list.Songs[0].Title)
}

func TestGet_UnknownID(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	router := newTestRouter(svc)

	// Well-formed but absent.
	req := httptest.NewRequest(http.MethodGet, "/api/music/0b06d273-39e1-4b0c-a23e-4fbefb2e2d2f", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed IDs are indistinguishable from absent ones.
	req = httptest.NewRequest(http.MethodGet, "/api/music/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListByUser_PaginatesOwnSongs(t *testing.T) {
	t.Parallel()
	svc, repo, _ := newTestService()
	router := newTestRouter(svc)

	ownerID := "2f5f9a31-9e5e-4f6c-8f37-0d4a2f9a1b10"
	repo.usernames[ownerID] = "carol"
	for i := 0; i < 3; i++ {
		rec := doUpload(t, router, testToken(t, ownerID),
			map[string]string{"title": fmt.Sprintf("S%d", i), "artist": "Artist1"}, []byte("xx"))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/music/user/"+ownerID+"?page=2&limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list listResponse
	decode(t, rec, &list)
	assert.Equal(t, 2, list.Page)
	assert.Equal(t, 2, list.Limit)
	require.Len(t, list.Songs, 1)
	assert.Equal(t, "S0", list.Songs[0].Title)
}
