package song

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxUploadBytes is the upload size ceiling (50 MiB).
const MaxUploadBytes = 50 << 20

// keyPrefix namespaces all catalog blobs in the bucket.
const keyPrefix = "music/"

// UploadInput is the typed upload request. Title and Artist are required;
// Album and Duration are optional ("" means absent). Filename, ContentType,
// and Size describe the submitted payload as declared by the client.
type UploadInput struct {
	Title       string
	Artist      string
	Album       string
	Duration    string
	Filename    string
	ContentType string
	Size        int64
}

// FieldError identifies a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every invalid field of an upload request.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// validate checks the upload input and returns a *ValidationError listing
// every violation, or nil when the input is acceptable. The parsed duration
// (nil when absent) is returned alongside. No store is touched here.
func (in *UploadInput) validate() (*int, *ValidationError) {
	var fields []FieldError

	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, FieldError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(in.Artist) == "" {
		fields = append(fields, FieldError{Field: "artist", Message: "artist is required"})
	}

	var duration *int
	if in.Duration != "" {
		d, err := strconv.Atoi(strings.TrimSpace(in.Duration))
		if err != nil || d < 0 {
			fields = append(fields, FieldError{Field: "duration", Message: "duration must be a non-negative integer"})
		} else {
			duration = &d
		}
	}

	if in.Size <= 0 {
		fields = append(fields, FieldError{Field: "audio", Message: "audio file is required"})
	} else {
		if !strings.HasPrefix(in.ContentType, "audio/") {
			fields = append(fields, FieldError{Field: "audio", Message: "only audio files are allowed"})
		}
		if in.Size > MaxUploadBytes {
			fields = append(fields, FieldError{Field: "audio", Message: "file exceeds the 50 MiB limit"})
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return duration, nil
}

// unsafeKeyChars matches everything we refuse to carry into a storage key.
var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// storageKey derives a collision-free key for the payload: a millisecond
// timestamp plus an independent random component means two concurrent
// uploads never land on the same key, whatever their filenames.
func storageKey(filename string) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "audio"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s%d-%s-%s", keyPrefix, time.Now().UnixMilli(), suffix, name)
}

// keyFromURL recovers the storage key from a song's retrieval locator.
// Keys are always "<prefix>/<object>", so the last two path segments of the
// public URL are exactly the key.
func keyFromURL(fileURL string) string {
	parts := strings.Split(fileURL, "/")
	if len(parts) < 2 {
		return fileURL
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
