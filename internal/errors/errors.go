package errors

import "errors"

var (
	ErrMalformedPayload     = errors.New("malformed webhook payload")
	ErrArchiveFailedToLoad  = errors.New("archive failed to load")
	ErrBucketPrefixRequired = errors.New("SITE_BUCKET_PREFIX is required")
	ErrUnexpectedStatus     = errors.New("unexpected response status")
)
