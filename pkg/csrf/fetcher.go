package csrf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/taskdesk/pkg/requestid"
)

// TokenPath is the endpoint, relative to the API base URL, that issues tokens.
const TokenPath = "/csrf-token"

// Fetcher obtains a fresh token from the server.
type Fetcher interface {
	FetchToken(ctx context.Context) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (string, error)

func (f FetcherFunc) FetchToken(ctx context.Context) (string, error) { return f(ctx) }

// HTTPFetcher calls GET {base}/csrf-token. The client must share its cookie
// jar with the gateway: the server binds the token to a cookie it sets on
// this response.
type HTTPFetcher struct {
	client   *http.Client
	endpoint string
}

type tokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// NewHTTPFetcher builds a fetcher for the API rooted at baseURL.
func NewHTTPFetcher(client *http.Client, baseURL string) (*HTTPFetcher, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Join(ErrInvalidURL, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, endpoint: u.String() + TokenPath}, nil
}

func (f *HTTPFetcher) FetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build csrf request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	requestid.Propagate(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Join(ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Join(ErrFetchFailed, err)
	}
	if body.CSRFToken == "" {
		return "", ErrEmptyToken
	}
	return body.CSRFToken, nil
}
