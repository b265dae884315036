package gateway

import (
	"context"

	"github.com/dmitrymomot/taskdesk/pkg/broadcast"
)

// User-facing notices for each failure kind.
const (
	MsgCSRFExpired    = "Security token expired. Please try again."
	MsgLoginRejected  = "Invalid email or password."
	MsgSessionExpired = "Session expired. Please log in again."
	MsgAccessDenied   = "Access denied."
	MsgNotFound       = "Not found."
	MsgBadRequest     = "Invalid request."
	MsgServerError    = "Server error, try again later."
	MsgNetworkError   = "Network error. Check your connection and try again."
	MsgUnexpected     = "Request failed."
)

var defaultMessages = map[Kind]string{
	KindCSRFExpired:   MsgCSRFExpired,
	KindLoginRejected: MsgLoginRejected,
	KindUnauthorized:  MsgSessionExpired,
	KindForbidden:     MsgAccessDenied,
	KindNotFound:      MsgNotFound,
	KindBadRequest:    MsgBadRequest,
	KindServer:        MsgServerError,
	KindNetwork:       MsgNetworkError,
	KindUnexpected:    MsgUnexpected,
}

// Event reports a classified failure to the presentation layer. The gateway
// never prints or navigates; whoever listens decides how to show Message and
// whether to follow Redirect.
type Event struct {
	Kind    Kind
	Status  int
	Message string
	// Redirect is the path the user should be moved to, or "".
	Redirect  string
	Method    string
	Path      string
	RequestID string
}

// Emitter receives gateway events.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, e Event)

func (f EmitterFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, Event) {}

// BroadcastEmitter publishes events on a broadcast bus.
func BroadcastEmitter(b broadcast.Broadcaster[Event]) Emitter {
	return EmitterFunc(func(ctx context.Context, e Event) {
		_ = b.Broadcast(ctx, e)
	})
}
