package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/savaki/site-deployer/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestFetchArchive(t *testing.T) {
	t.Run("streams response body", func(t *testing.T) {
		var gotAuth, gotAccept string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotAccept = r.Header.Get("Accept")
			_, _ = w.Write([]byte("tarball-bytes"))
		}))
		defer server.Close()

		svc := NewSourceService("secret-token")
		body, err := svc.FetchArchive(context.Background(), server.URL)
		assert.NoError(t, err)
		defer body.Close()

		data, err := io.ReadAll(body)
		assert.NoError(t, err)
		assert.Equal(t, "tarball-bytes", string(data))
		assert.Equal(t, "Bearer secret-token", gotAuth)
		assert.Equal(t, "application/vnd.github+json", gotAccept)
	})

	t.Run("no authorization header without token", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
		}))
		defer server.Close()

		svc := NewSourceService("")
		body, err := svc.FetchArchive(context.Background(), server.URL)
		assert.NoError(t, err)
		_ = body.Close()
		assert.Empty(t, gotAuth)
	})

	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such ref", http.StatusNotFound)
		}))
		defer server.Close()

		svc := NewSourceService("")
		_, err := svc.FetchArchive(context.Background(), server.URL)
		assert.ErrorIs(t, err, errors.ErrUnexpectedStatus)
		assert.Contains(t, err.Error(), "404")
	})
}
