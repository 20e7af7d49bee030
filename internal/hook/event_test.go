package hook

import (
	"testing"

	"github.com/savaki/site-deployer/internal/errors"
	"github.com/stretchr/testify/assert"
)

const validBody = `{
	"repository": {
		"name": "blog",
		"full_name": "savaki/blog",
		"archive_url": "https://api.github.com/repos/savaki/blog/{archive_format}{/ref}"
	},
	"head_commit": {
		"id": "8f3c9d2e1a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d"
	}
}`

func TestParse(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		event, err := Parse(validBody)
		assert.NoError(t, err)
		assert.Equal(t, "blog", event.Repository.Name)
		assert.Equal(t, "savaki/blog", event.Repository.FullName)
		assert.Equal(t, "8f3c9d2e1a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d", event.HeadCommit.ID)
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "not json", body: "push event"},
		{name: "truncated json", body: `{"repository": {"name": "blog"`},
		{name: "missing repository", body: `{"head_commit": {"id": "abc123"}}`},
		{
			name: "missing full name",
			body: `{"repository": {"name": "blog", "archive_url": "u"}, "head_commit": {"id": "abc123"}}`,
		},
		{
			name: "missing archive url",
			body: `{"repository": {"name": "blog", "full_name": "savaki/blog"}, "head_commit": {"id": "abc123"}}`,
		},
		{
			name: "missing head commit",
			body: `{"repository": {"name": "blog", "full_name": "savaki/blog", "archive_url": "u"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.body)
			assert.ErrorIs(t, err, errors.ErrMalformedPayload)
		})
	}
}

func TestTarballURL(t *testing.T) {
	event, err := Parse(validBody)
	assert.NoError(t, err)
	assert.Equal(t,
		"https://api.github.com/repos/savaki/blog/tarball/8f3c9d2e1a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d",
		event.TarballURL())
}

func TestBucketName(t *testing.T) {
	event, err := Parse(validBody)
	assert.NoError(t, err)

	t.Run("with configured prefix", func(t *testing.T) {
		assert.Equal(t, "sites-8f3c9d2e1a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d", event.BucketName("sites"))
	})

	t.Run("falls back to repository name", func(t *testing.T) {
		assert.Equal(t, "blog-8f3c9d2e1a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d", event.BucketName(""))
	})
}
