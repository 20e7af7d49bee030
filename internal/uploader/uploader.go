// Package uploader publishes a build output tree to a storage bucket.
package uploader

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/savaki/site-deployer/internal/services"
	"golang.org/x/sync/errgroup"
)

const defaultContentType = "application/octet-stream"

// Uploader uploads every file under a directory, one concurrent upload per
// file. A single failure aborts the whole batch; there is no retry and no
// partial-success tolerance.
type Uploader struct {
	storage *services.StorageService
}

// New creates an Uploader backed by the given storage service.
func New(storage *services.StorageService) *Uploader {
	return &Uploader{storage: storage}
}

// UploadDir walks dir and uploads each regular file to bucket with a key
// equal to its dir-relative path. Returns the number of files uploaded.
func (u *Uploader) UploadDir(ctx context.Context, bucket, dir string) (int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk output directory: %w", err)
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		group.Go(func() error {
			return u.uploadFile(gctx, bucket, dir, path)
		})
	}

	if err := group.Wait(); err != nil {
		return 0, err
	}

	zerolog.Ctx(ctx).Info().
		Str("bucket", bucket).
		Int("files", len(files)).
		Msg("Uploaded site output")

	return len(files), nil
}

func (u *Uploader) uploadFile(ctx context.Context, bucket, dir, path string) error {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return fmt.Errorf("failed to resolve key for %s: %w", path, err)
	}
	key := filepath.ToSlash(rel)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = defaultContentType
	}

	return u.storage.PutObject(ctx, bucket, key, contentType, f)
}
