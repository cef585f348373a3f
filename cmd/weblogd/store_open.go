package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"weblogd/internal/blobstore"
	"weblogd/internal/config"
	"weblogd/internal/store"
)

func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	if cfg.Attachments.BlobBackend == config.BlobBackendMinIO {
		return blobstore.NewMinIO(ctx, blobstore.MinIOOptions{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	}

	root := cfg.Attachments.BlobDir
	if root == "" {
		root = filepath.Join(filepath.Dir(cfg.DBPath), ".weblogd", "blobs")
	}
	return blobstore.NewLocalCAS(root)
}

// openStore opens the database with the configured blob backend. Schema
// migrations run on open.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("opening database", "path", cfg.DBPath, "blob_backend", cfg.Attachments.BlobBackend)
	return store.Open(cfg.DBPath, store.WithBlobStore(blobs), store.WithLogger(logger))
}

// withStore runs fn against a store opened for a one-shot admin command.
func withStore(ctx context.Context, cfg *config.Config, fn func(*store.Store) error) error {
	st, err := openStore(ctx, cfg, slog.Default().With("component", "cli"))
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
