package logger

import (
	"log/slog"
	"time"
)

// Error records err under "error". A nil error yields an empty Attr, which
// slog drops, so callers need no nil check.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

func Role(role string) slog.Attr {
	if role == "" {
		return slog.Attr{}
	}
	return slog.String("role", role)
}

func Method(m string) slog.Attr {
	return slog.String("method", m)
}

func Path(p string) slog.Attr {
	return slog.String("path", p)
}

func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

// Kind records an error classification such as "csrf" or "unauthorized".
func Kind(kind string) slog.Attr {
	return slog.String("kind", kind)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func State(name string) slog.Attr {
	return slog.String("state", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
