package services

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/savaki/site-deployer/internal/errors"
)

const (
	// ThemeName is the directory name the site builder expects the theme
	// under, and the value passed to its --theme flag.
	ThemeName = "ananke"

	// themeArchiveURL points at a pinned revision of the theme so every
	// deploy renders with the same theme regardless of upstream changes.
	themeArchiveURL = "https://api.github.com/repos/theNewDynamic/gohugo-theme-ananke/tarball/61eb7012d1041930aafa5b7ebb2f1e593c6e4936"
)

// SourceService fetches repository and theme archives from the source host.
type SourceService struct {
	token      string
	httpClient *http.Client
}

// NewSourceService creates a source host client. The token may be empty for
// public repositories.
func NewSourceService(token string) *SourceService {
	return &SourceService{
		token:      token,
		httpClient: &http.Client{},
	}
}

// FetchArchive issues a GET for a tarball URL and returns the response body
// stream. The caller owns the returned ReadCloser.
func (s *SourceService) FetchArchive(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "site-deployer")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archive: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: fetching %s: status %d, body: %s",
			errors.ErrUnexpectedStatus, url, resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// FetchTheme fetches the pinned theme archive.
func (s *SourceService) FetchTheme(ctx context.Context) (io.ReadCloser, error) {
	return s.FetchArchive(ctx, themeArchiveURL)
}
