// Package archive extracts gzipped repository tarballs into a workspace.
package archive

import (
	"archive/tar"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/savaki/site-deployer/internal/errors"
)

// Extract reads a gzipped tarball from r and writes its entries under dir.
// Entries that would escape dir are rejected.
func Extract(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: not a gzip stream: %v", errors.ErrArchiveFailedToLoad, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errors.ErrArchiveFailedToLoad, err)
		}

		target, err := securePath(dir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, header.FileInfo().Mode()); err != nil {
				return fmt.Errorf("failed to extract %s: %w", header.Name, err)
			}
		default:
			// Symlinks, devices, and the pax global header are ignored.
		}
	}
}

// RelocateRoot renames the single top-level directory under dir to target.
// GitHub tarballs wrap the tree in one {owner}-{repo}-{sha} directory; an
// archive with zero or multiple top-level directories is treated as
// malformed rather than guessed at. Names listed in exclude (and the target
// itself) are skipped when locating the root.
func RelocateRoot(dir, target string, exclude ...string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	skip := map[string]bool{target: true}
	for _, name := range exclude {
		skip[name] = true
	}

	var root string
	for _, entry := range entries {
		if !entry.IsDir() || skip[entry.Name()] {
			continue
		}
		if root != "" {
			return fmt.Errorf("%w: multiple top-level directories", errors.ErrArchiveFailedToLoad)
		}
		root = entry.Name()
	}

	if root == "" {
		return fmt.Errorf("%w: no top-level directory", errors.ErrArchiveFailedToLoad)
	}

	if err := os.Rename(filepath.Join(dir, root), filepath.Join(dir, target)); err != nil {
		return fmt.Errorf("failed to relocate archive root: %w", err)
	}

	return nil
}

func securePath(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	if target != dir && !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: entry %s escapes extraction directory", errors.ErrArchiveFailedToLoad, name)
	}
	return target, nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
