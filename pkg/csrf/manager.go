package csrf

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/taskdesk/pkg/async"
	"github.com/dmitrymomot/taskdesk/pkg/logger"
)

// State describes the cached token.
type State string

const (
	// StateEmpty: no token has been obtained yet.
	StateEmpty State = "empty"
	// StateCached: a token is held and sent on state-changing requests.
	StateCached State = "cached"
	// StateInvalidated: the server rejected the held token; it was dropped.
	StateInvalidated State = "invalidated"
	// StateFetching: a fetch is in flight.
	StateFetching State = "fetching"
)

const defaultFetchTimeout = 10 * time.Second

// Manager owns the CSRF token of one API client. It is safe for concurrent use.
type Manager struct {
	fetcher Fetcher
	logger  *slog.Logger
	timeout time.Duration

	group singleflight.Group

	mu       sync.RWMutex
	token    string
	state    State
	inflight int
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithFetchTimeout bounds a single fetch. The shared fetch is detached from
// the caller's cancellation so one impatient caller cannot fail the others.
func WithFetchTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func New(fetcher Fetcher, opts ...Option) (*Manager, error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}
	m := &Manager{
		fetcher: fetcher,
		logger:  logger.Discard(),
		timeout: defaultFetchTimeout,
		state:   StateEmpty,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("csrf"))
	return m, nil
}

// Token returns the cached token or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.inflight > 0 {
		return StateFetching
	}
	return m.state
}

// Fetch asks the server for a new token. Concurrent calls share one request.
// On success the token is cached; on failure the error is logged and the
// cache is left as it was.
func (m *Manager) Fetch(ctx context.Context) (string, error) {
	ch := m.group.DoChan("token", func() (any, error) {
		return m.fetch(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) fetch(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	token, err := m.fetcher.FetchToken(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--

	if err != nil {
		m.logger.WarnContext(ctx, "csrf token fetch failed",
			logger.Error(err),
			logger.State(string(m.state)),
			logger.Duration(time.Since(start)),
		)
		return "", err
	}
	if token == "" {
		m.logger.WarnContext(ctx, "csrf token fetch returned empty token")
		return "", ErrEmptyToken
	}

	m.token, m.state = token, StateCached
	m.logger.DebugContext(ctx, "csrf token cached", logger.Duration(time.Since(start)))
	return token, nil
}

// Warmup starts a fetch in the background. Its failure is only logged, so
// callers normally ignore the returned future; requests fetch lazily through
// Ensure anyway.
func (m *Manager) Warmup(ctx context.Context) *async.Future[string] {
	return async.Go(ctx, m.Fetch)
}

// Ensure returns the cached token, fetching one when none is held.
func (m *Manager) Ensure(ctx context.Context) (string, error) {
	if token := m.Token(); token != "" {
		return token, nil
	}
	return m.Fetch(ctx)
}

// Invalidate drops the cached token after the server rejected it.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.state = "", StateInvalidated
}

// Refresh invalidates and fetches a replacement.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.Invalidate()
	return m.Fetch(ctx)
}
