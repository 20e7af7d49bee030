package uploader

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/savaki/site-deployer/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingS3 is a concurrency-safe S3API fake that records uploads.
type recordingS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	failKey string
}

func newRecordingS3() *recordingS3 {
	return &recordingS3{
		objects: map[string]string{},
		types:   map[string]string{},
	}
}

func (f *recordingS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *recordingS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return &s3.CreateBucketOutput{}, nil
}

func (f *recordingS3) DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	return &s3.DeleteBucketOutput{}, nil
}

func (f *recordingS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)
	if f.failKey != "" && key == f.failKey {
		return nil, stderrors.New("simulated upload failure")
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = string(data)
	f.types[key] = aws.ToString(params.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func TestUploadDir(t *testing.T) {
	fake := newRecordingS3()
	u := New(services.NewStorageService(fake))

	dir := writeTree(t, map[string]string{
		"index.html":        "<html></html>",
		"css/site.css":      "body{}",
		"posts/hello.html":  "<p>hello</p>",
		"images/logo.png":   "png-bytes",
	})

	count, err := u.UploadDir(context.Background(), "sites-abc123", dir)
	assert.NoError(t, err)
	assert.Equal(t, 4, count)

	assert.Equal(t, "<html></html>", fake.objects["index.html"])
	assert.Equal(t, "body{}", fake.objects["css/site.css"])
	assert.Equal(t, "<p>hello</p>", fake.objects["posts/hello.html"])
	assert.Equal(t, "png-bytes", fake.objects["images/logo.png"])

	assert.Contains(t, fake.types["index.html"], "text/html")
	assert.Contains(t, fake.types["css/site.css"], "text/css")
	assert.Equal(t, "image/png", fake.types["images/logo.png"])
}

func TestUploadDirEmpty(t *testing.T) {
	u := New(services.NewStorageService(newRecordingS3()))

	count, err := u.UploadDir(context.Background(), "sites-abc123", t.TempDir())
	assert.NoError(t, err)
	assert.Zero(t, count)
}

func TestUploadDirFailureAbortsBatch(t *testing.T) {
	fake := newRecordingS3()
	fake.failKey = "css/site.css"
	u := New(services.NewStorageService(fake))

	dir := writeTree(t, map[string]string{
		"index.html":   "<html></html>",
		"css/site.css": "body{}",
	})

	_, err := u.UploadDir(context.Background(), "sites-abc123", dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "simulated upload failure")
}

func TestUploadDirUnknownExtension(t *testing.T) {
	fake := newRecordingS3()
	u := New(services.NewStorageService(fake))

	dir := writeTree(t, map[string]string{"data.bin2": "blob"})

	_, err := u.UploadDir(context.Background(), "sites-abc123", dir)
	assert.NoError(t, err)
	assert.Equal(t, "application/octet-stream", fake.types["data.bin2"])
}
