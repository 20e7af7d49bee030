// Package hook parses and validates inbound push webhook payloads.
package hook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/savaki/site-deployer/internal/errors"
)

// Repository identifies the repository the push event originated from.
type Repository struct {
	Name       string `json:"name"`        // Repository name only, used as the default bucket base name
	FullName   string `json:"full_name"`   // {owner}/{repo}
	ArchiveURL string `json:"archive_url"` // Templated, e.g. https://api.github.com/repos/{owner}/{repo}/{archive_format}{/ref}
}

// Commit identifies the head commit of the push.
type Commit struct {
	ID string `json:"id"` // Full commit SHA
}

// PushEvent is the subset of a push webhook payload the pipeline consumes.
type PushEvent struct {
	Repository Repository `json:"repository"`
	HeadCommit Commit     `json:"head_commit"`
}

// Parse decodes a raw webhook body and validates the fields the pipeline
// depends on. All failures wrap errors.ErrMalformedPayload so the handler
// can map them to a 400 response.
func Parse(body string) (PushEvent, error) {
	var event PushEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return PushEvent{}, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}

	switch {
	case event.Repository.FullName == "":
		return PushEvent{}, fmt.Errorf("%w: repository.full_name is required", errors.ErrMalformedPayload)
	case event.Repository.Name == "":
		return PushEvent{}, fmt.Errorf("%w: repository.name is required", errors.ErrMalformedPayload)
	case event.Repository.ArchiveURL == "":
		return PushEvent{}, fmt.Errorf("%w: repository.archive_url is required", errors.ErrMalformedPayload)
	case event.HeadCommit.ID == "":
		return PushEvent{}, fmt.Errorf("%w: head_commit.id is required", errors.ErrMalformedPayload)
	}

	return event, nil
}

// TarballURL expands the repository's archive URL template for a gzipped
// tarball of the head commit.
func (e PushEvent) TarballURL() string {
	url := strings.ReplaceAll(e.Repository.ArchiveURL, "{archive_format}", "tarball")
	return strings.ReplaceAll(url, "{/ref}", "/"+e.HeadCommit.ID)
}

// BucketName returns the destination bucket for this event. The bucket is
// keyed by commit so redelivery of the same event resolves to the same
// bucket. When no prefix is configured the repository name is used.
func (e PushEvent) BucketName(prefix string) string {
	if prefix == "" {
		prefix = e.Repository.Name
	}
	return fmt.Sprintf("%s-%s", prefix, e.HeadCommit.ID)
}
