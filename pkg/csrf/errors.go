package csrf

import "errors"

var (
	ErrEmptyToken  = errors.New("csrf: server returned an empty token")
	ErrFetchFailed = errors.New("csrf: token fetch failed")
	ErrNoFetcher   = errors.New("csrf: fetcher is required")
	ErrInvalidURL  = errors.New("csrf: invalid token endpoint url")
)
