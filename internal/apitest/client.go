package apitest

import (
	"testing"

	"github.com/dmitrymomot/taskdesk/pkg/csrf"
	"github.com/dmitrymomot/taskdesk/pkg/gateway"
)

// NewClient returns a gateway pointed at s, with a CSRF manager sharing its
// cookie jar. Extra options are applied last.
func NewClient(t testing.TB, s *Server, sessions gateway.SessionStore, opts ...gateway.Option) *gateway.Client {
	t.Helper()

	hc, err := gateway.NewHTTPClient(0)
	if err != nil {
		t.Fatalf("http client: %v", err)
	}
	fetcher, err := csrf.NewHTTPFetcher(hc, s.APIURL())
	if err != nil {
		t.Fatalf("csrf fetcher: %v", err)
	}
	tokens, err := csrf.New(fetcher)
	if err != nil {
		t.Fatalf("csrf manager: %v", err)
	}

	base := []gateway.Option{
		gateway.WithHTTPClient(hc),
		gateway.WithCSRF(tokens),
	}
	if sessions != nil {
		base = append(base, gateway.WithSessionStore(sessions))
	}
	c, err := gateway.New(s.APIURL(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return c
}
