package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOK(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	OK(rec, map[string]string{"message": "done"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"done"}`, rec.Body.String())
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		body   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "nope") }, http.StatusBadRequest, `{"error":"nope"}`},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "who") }, http.StatusUnauthorized, `{"error":"who"}`},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "gone") }, http.StatusNotFound, `{"error":"gone"}`},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "dup") }, http.StatusConflict, `{"error":"dup"}`},
		{"internal", InternalError, http.StatusInternalServerError, `{"error":"internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}
