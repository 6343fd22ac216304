// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider (MinIO, AWS S3).
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object, as reported by a listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage is the interface for uploading, removing, and inspecting objects.
type Storage interface {
	// Upload streams data to the store under the given key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object is present under key.
	Exists(ctx context.Context, key string) (bool, error)
	// List enumerates all objects whose keys start with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}
