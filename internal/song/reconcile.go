package song

import (
	"context"
	"fmt"
	"time"

	"github.com/harmonia/service/internal/storage"
)

// fileURLLister is the slice of the repository the sweep needs.
type fileURLLister interface {
	FileURLs(ctx context.Context) ([]string, error)
}

// Report is the outcome of a reconciliation sweep over the catalog and the
// blob store.
type Report struct {
	Rows         int      // catalog rows inspected
	Blobs        int      // objects found under the catalog prefix
	MissingBlobs []string // keys referenced by a row but absent from the store
	OrphanBlobs  []string // keys present in the store but referenced by no row
	Pruned       []string // orphan keys deleted this sweep
}

// Reconcile compares catalog rows against blobs under the catalog prefix and
// reports divergence both ways. When pruneOlderThan > 0, orphaned blobs whose
// last modification is older than the cutoff are deleted; the age guard keeps
// the sweep from racing an upload that has written its blob but not yet its
// row.
func Reconcile(ctx context.Context, repo fileURLLister, store storage.Storage, pruneOlderThan time.Duration) (*Report, error) {
	urls, err := repo.FileURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog rows: %w", err)
	}

	rowKeys := make(map[string]bool, len(urls))
	for _, u := range urls {
		rowKeys[keyFromURL(u)] = true
	}

	report := &Report{Rows: len(urls)}

	for key := range rowKeys {
		exists, err := store.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("check blob %q: %w", key, err)
		}
		if !exists {
			report.MissingBlobs = append(report.MissingBlobs, key)
		}
	}

	objects, err := store.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	report.Blobs = len(objects)

	cutoff := time.Now().Add(-pruneOlderThan)
	for _, obj := range objects {
		if rowKeys[obj.Key] {
			continue
		}
		report.OrphanBlobs = append(report.OrphanBlobs, obj.Key)

		if pruneOlderThan > 0 && obj.LastModified.Before(cutoff) {
			if err := store.Delete(ctx, obj.Key); err != nil {
				return nil, fmt.Errorf("prune blob %q: %w", obj.Key, err)
			}
			report.Pruned = append(report.Pruned, obj.Key)
		}
	}

	return report, nil
}
