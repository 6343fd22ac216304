// Command reconcile compares catalog rows against blobs in object storage
// and reports divergence both ways: rows whose blob is gone, and blobs no
// row references. The upload and deletion paths accept narrow inconsistency
// windows instead of cross-store transactions; this sweep is the operator's
// tool for closing them.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/harmonia/service/internal/config"
	"github.com/harmonia/service/internal/db"
	"github.com/harmonia/service/internal/song"
	"github.com/harmonia/service/internal/storage"
)

func main() {
	prune := flag.Bool("prune", false, "delete orphaned blobs older than -prune-age")
	pruneAge := flag.Duration("prune-age", time.Hour, "minimum age before an orphaned blob is pruned")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StoragePublicBase,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	pruneOlderThan := time.Duration(0)
	if *prune {
		pruneOlderThan = *pruneAge
	}

	report, err := song.Reconcile(ctx, song.NewRepository(pool), store, pruneOlderThan)
	if err != nil {
		log.Fatalf("reconcile failed: %v", err)
	}

	log.Printf("inspected %d rows, %d blobs", report.Rows, report.Blobs)
	for _, key := range report.MissingBlobs {
		log.Printf("MISSING BLOB: row references %q but the object is gone", key)
	}
	for _, key := range report.OrphanBlobs {
		log.Printf("ORPHAN BLOB: %q referenced by no row", key)
	}
	for _, key := range report.Pruned {
		log.Printf("pruned %q", key)
	}
	if len(report.MissingBlobs) == 0 && len(report.OrphanBlobs) == 0 {
		log.Println("catalog and blob store agree")
	}
}
