package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinels matched by errors.Is against an *APIError of the same Kind.
var (
	ErrCSRFExpired   = errors.New("gateway: security token expired")
	ErrLoginRejected = errors.New("gateway: login rejected")
	ErrUnauthorized  = errors.New("gateway: unauthorized")
	ErrForbidden     = errors.New("gateway: forbidden")
	ErrNotFound      = errors.New("gateway: not found")
	ErrBadRequest    = errors.New("gateway: bad request")
	ErrServer        = errors.New("gateway: server error")
	ErrNetwork       = errors.New("gateway: network error")
	ErrUnexpected    = errors.New("gateway: unexpected response")

	ErrInvalidBaseURL = errors.New("gateway: invalid base url")
	ErrDecodeResponse = errors.New("gateway: cannot decode response")
)

// Kind classifies a failed call.
type Kind string

const (
	KindCSRFExpired   Kind = "csrf_expired"
	KindLoginRejected Kind = "login_rejected"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not_found"
	KindBadRequest    Kind = "bad_request"
	KindServer        Kind = "server"
	KindNetwork       Kind = "network"
	KindUnexpected    Kind = "unexpected"
)

var kindSentinels = map[Kind]error{
	KindCSRFExpired:   ErrCSRFExpired,
	KindLoginRejected: ErrLoginRejected,
	KindUnauthorized:  ErrUnauthorized,
	KindForbidden:     ErrForbidden,
	KindNotFound:      ErrNotFound,
	KindBadRequest:    ErrBadRequest,
	KindServer:        ErrServer,
	KindNetwork:       ErrNetwork,
	KindUnexpected:    ErrUnexpected,
}

// FieldError is one entry of the server's errors[] array.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is returned for every failed call, after the gateway has applied
// its side effects, so callers can still render the details locally.
type APIError struct {
	Method    string
	Path      string
	Status    int // 0 for network failures
	Code      string
	Message   string
	Errors    []FieldError
	Kind      Kind
	RequestID string
	// Body is the raw response body. Endpoints with extra failure fields,
	// such as requiresVerification on login, decode it themselves.
	Body []byte
	// Err is the transport error of a network failure.
	Err error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: ", e.Method, e.Path)
	if e.Status > 0 {
		fmt.Fprintf(&b, "%d %s", e.Status, http.StatusText(e.Status))
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e's Kind.
func (e *APIError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// FieldErrors maps field to message, ready for form.Controller.MergeErrors.
// The first message wins for a repeated field.
func (e *APIError) FieldErrors() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, ok := out[fe.Field]; !ok && fe.Field != "" {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// UserMessage is the text to show the user: the server message for errors
// the server words itself, the generic notice otherwise.
func (e *APIError) UserMessage() string {
	switch e.Kind {
	case KindLoginRejected, KindNotFound, KindBadRequest, KindUnexpected:
		if e.Message != "" {
			return e.Message
		}
	}
	return defaultMessages[e.Kind]
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
