package gateway

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/taskdesk/pkg/logger"
	"github.com/dmitrymomot/taskdesk/pkg/routes"
)

// handle applies the side effects of a classified failure and emits its
// event. Unclassified statuses emit nothing.
func (c *Client) handle(ctx context.Context, apiErr *APIError) {
	ev := Event{
		Kind:      apiErr.Kind,
		Status:    apiErr.Status,
		Message:   apiErr.UserMessage(),
		Method:    apiErr.Method,
		Path:      apiErr.Path,
		RequestID: apiErr.RequestID,
	}
	level := slog.LevelWarn

	switch apiErr.Kind {
	case KindLoginRejected:
		// The login screen renders the message inline; only the stale
		// session entry goes, other persisted keys stay.
		if c.sessions != nil {
			if err := c.sessions.Clear(ctx); err != nil {
				c.logger.ErrorContext(ctx, "clear session after rejected login", logger.Error(err))
			}
		}
		level = slog.LevelInfo

	case KindUnauthorized:
		if c.sessions != nil {
			if err := c.sessions.Purge(ctx); err != nil {
				c.logger.ErrorContext(ctx, "purge storage after 401", logger.Error(err))
			}
		}
		if !c.routes.IsAuthPath(c.locate()) {
			ev.Redirect = c.routes.LoginPath
		}

	case KindForbidden:
		ev.Redirect = c.roleHomeRedirect(ctx)

	case KindServer, KindNetwork:
		level = slog.LevelError

	case KindCSRFExpired, KindNotFound, KindBadRequest:

	default:
		c.logger.DebugContext(ctx, "unclassified api failure",
			logger.Method(apiErr.Method), logger.Path(apiErr.Path), logger.Status(apiErr.Status))
		return
	}

	c.logger.Log(ctx, level, "api call failed",
		logger.Method(apiErr.Method),
		logger.Path(apiErr.Path),
		logger.Status(apiErr.Status),
		logger.Kind(string(apiErr.Kind)),
		slog.String("code", apiErr.Code),
		slog.String("redirect", ev.Redirect),
		logger.Error(apiErr.Err),
	)
	c.emitter.Emit(ctx, ev)
}

// roleHomeRedirect returns the signed-in role's home unless the user is
// already on it, or "" without a session role.
func (c *Client) roleHomeRedirect(ctx context.Context) string {
	if c.sessions == nil {
		return ""
	}
	sess, err := c.sessions.Load(ctx)
	if err != nil || sess.Role == "" {
		return ""
	}
	home := c.routes.HomeFor(sess.Role)
	if routes.Under(c.locate(), home) {
		return ""
	}
	return home
}
