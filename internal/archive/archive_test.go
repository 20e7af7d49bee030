package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/savaki/site-deployer/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name string
	body string
	dir  bool
}

func makeTarball(t *testing.T, entries []entry) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		if e.dir {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     e.name,
				Typeflag: tar.TypeDir,
				Mode:     0o755,
			}))
			continue
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(e.body)),
		}))
		_, err := tw.Write([]byte(e.body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return &buf
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()

	tarball := makeTarball(t, []entry{
		{name: "savaki-blog-8f3c9d2/", dir: true},
		{name: "savaki-blog-8f3c9d2/config.toml", body: `title = "blog"`},
		{name: "savaki-blog-8f3c9d2/content/", dir: true},
		{name: "savaki-blog-8f3c9d2/content/post.md", body: "# hello"},
	})

	assert.NoError(t, Extract(tarball, dir))

	data, err := os.ReadFile(filepath.Join(dir, "savaki-blog-8f3c9d2", "content", "post.md"))
	assert.NoError(t, err)
	assert.Equal(t, "# hello", string(data))
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()

	tarball := makeTarball(t, []entry{
		{name: "../escape.txt", body: "nope"},
	})

	err := Extract(tarball, dir)
	assert.ErrorIs(t, err, errors.ErrArchiveFailedToLoad)
}

func TestExtractRejectsNonGzip(t *testing.T) {
	err := Extract(bytes.NewBufferString("not a tarball"), t.TempDir())
	assert.ErrorIs(t, err, errors.ErrArchiveFailedToLoad)
}

func TestRelocateRoot(t *testing.T) {
	t.Run("single root renamed", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "public"), 0o755))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "savaki-blog-8f3c9d2", "content"), 0o755))

		assert.NoError(t, RelocateRoot(dir, "src", "public"))

		info, err := os.Stat(filepath.Join(dir, "src", "content"))
		assert.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("no root", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "public"), 0o755))

		err := RelocateRoot(dir, "src", "public")
		assert.ErrorIs(t, err, errors.ErrArchiveFailedToLoad)
	})

	t.Run("multiple roots", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "first"), 0o755))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "second"), 0o755))

		err := RelocateRoot(dir, "src")
		assert.ErrorIs(t, err, errors.ErrArchiveFailedToLoad)
	})

	t.Run("plain files ignored", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pax_global_header"), nil, 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "theme-root"), 0o755))

		assert.NoError(t, RelocateRoot(dir, "ananke"))
		_, err := os.Stat(filepath.Join(dir, "ananke"))
		assert.NoError(t, err)
	})
}
