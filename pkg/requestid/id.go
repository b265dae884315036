package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	Header      = "X-Request-ID"
	maxIDLength = 128
)

var validIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// New returns a random UUIDv4 string.
func New() string {
	return uuid.NewString()
}

// Valid reports whether id is safe to forward in a header and a log line.
func Valid(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return validIDRegex.MatchString(id)
}

// Propagate sets the Header of an outbound request from its context, creating
// an id when the context carries none. It returns the id sent.
func Propagate(req *http.Request) string {
	ctx, id := Ensure(req.Context())
	*req = *req.WithContext(ctx)
	req.Header.Set(Header, id)
	return id
}

// FromResponse returns the id echoed by the server, or "".
func FromResponse(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	if id := resp.Header.Get(Header); Valid(id) {
		return id
	}
	return ""
}
