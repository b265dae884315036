package taskdesk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/taskdesk/modules/signin"
	"github.com/dmitrymomot/taskdesk/pkg/async"
	"github.com/dmitrymomot/taskdesk/pkg/broadcast"
	"github.com/dmitrymomot/taskdesk/pkg/config"
	"github.com/dmitrymomot/taskdesk/pkg/csrf"
	"github.com/dmitrymomot/taskdesk/pkg/gateway"
	"github.com/dmitrymomot/taskdesk/pkg/logger"
	"github.com/dmitrymomot/taskdesk/pkg/redis"
	"github.com/dmitrymomot/taskdesk/pkg/requestid"
	"github.com/dmitrymomot/taskdesk/pkg/routes"
	"github.com/dmitrymomot/taskdesk/pkg/session"
	"github.com/dmitrymomot/taskdesk/pkg/storage"
	"github.com/dmitrymomot/taskdesk/svc/authapi"
)

// ServiceName tags log records and metrics.
const ServiceName = "taskdesk"

// eventBuffer is how many gateway events a subscriber may lag behind.
const eventBuffer = 32

// Check probes one dependency.
type Check func(ctx context.Context) error

// App wires the client together: persisted session, CSRF token manager,
// request gateway, auth API and the event bus the gateway reports on. It also
// tracks the user's current location, which drives redirect decisions.
type App struct {
	cfg      config.App
	logger   *slog.Logger
	routes   routes.Config
	storage  storage.Storage
	sessions *session.Store
	tokens   *csrf.Manager
	api      *gateway.Client
	auth     *authapi.Service
	events   *broadcast.MemoryBroadcaster[gateway.Event]
	registry *prometheus.Registry
	checks   map[string]Check

	mu         sync.RWMutex
	location   string
	onNavigate []func(path string)

	stop    context.CancelFunc
	closers []func() error
}

type options struct {
	logger     *slog.Logger
	storage    storage.Storage
	httpClient *http.Client
	registry   *prometheus.Registry
	logOutput  io.Writer
}

// Option configures New.
type Option func(*options)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogOutput sends the configured logger's output to w.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithStorage bypasses the configured storage driver.
func WithStorage(s storage.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithHTTPClient replaces the client built from the configuration. It
// should carry a cookie jar.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRegistry registers the gateway metrics with r.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) { o.registry = r }
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.App, out io.Writer) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, ServiceName),
		logger.WithOutput(out),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	return logger.New(opts...)
}

// DefaultStoragePath is the session file used when none is configured.
func DefaultStoragePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".taskdesk", "session.json"), nil
}

// New validates cfg and builds the App. Close releases what it opened.
func New(ctx context.Context, cfg config.App, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		log = NewLogger(cfg, o.logOutput)
	}

	rts := routes.Default()
	if cfg.RoutesFile != "" {
		var err error
		if rts, err = routes.Load(cfg.RoutesFile); err != nil {
			return nil, err
		}
	}

	bg, stop := context.WithCancel(context.WithoutCancel(ctx))
	a := &App{
		cfg:      cfg,
		logger:   log,
		routes:   rts,
		location: rts.LoginPath,
		checks:   make(map[string]Check),
		registry: o.registry,
		stop:     stop,
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}

	if err := a.openStorage(bg, o.storage); err != nil {
		_ = a.Close()
		return nil, err
	}

	hc := o.httpClient
	if hc == nil {
		var err error
		if hc, err = gateway.NewHTTPClient(cfg.HTTPTimeout); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	fetcher, err := csrf.NewHTTPFetcher(hc, cfg.APIBaseURL)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.tokens, err = csrf.New(fetcher, csrf.WithLogger(log)); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.checks["api"] = func(ctx context.Context) error {
		_, err := a.tokens.Fetch(ctx)
		return err
	}

	a.events = broadcast.NewMemoryBroadcaster[gateway.Event](eventBuffer)
	a.closers = append(a.closers, a.events.Close)

	a.api, err = gateway.New(cfg.APIBaseURL,
		gateway.WithHTTPClient(hc),
		gateway.WithSessionStore(a.sessions),
		gateway.WithCSRF(a.tokens),
		gateway.WithEmitter(gateway.BroadcastEmitter(a.events)),
		gateway.WithRoutes(rts),
		gateway.WithLocator(a.Location),
		gateway.WithMetrics(gateway.NewMetrics(a.registry)),
		gateway.WithLogger(log),
		gateway.WithCSRFInvalidCode(cfg.CSRFInvalidCode),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.auth = authapi.New(a.api, a.sessions, authapi.WithLogger(log))

	return a, nil
}

func (a *App) openStorage(ctx context.Context, override storage.Storage) error {
	backend := override
	if backend == nil {
		var err error
		if backend, err = a.configuredStorage(ctx); err != nil {
			return err
		}
	}
	a.storage = backend
	a.sessions = session.NewStore(backend)

	// Another process (a second terminal) may log in or out.
	if fs, ok := backend.(*storage.FileStorage); ok {
		fs.OnChange(a.sessions.Invalidate)
		if err := fs.Watch(ctx); err != nil {
			a.logger.WarnContext(ctx, "session file not watched", logger.Error(err))
		}
	}
	return nil
}

func (a *App) configuredStorage(ctx context.Context) (storage.Storage, error) {
	switch a.cfg.StorageDriver {
	case config.StorageMemory:
		return storage.NewMemoryStorage(), nil

	case config.StorageRedis:
		client, err := redis.Connect(ctx, a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("session storage: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.checks["redis"] = Check(redis.Healthcheck(client))
		return storage.NewRedisStorage(client, a.cfg.Redis.Namespace), nil

	default:
		path := a.cfg.StoragePath
		if path == "" {
			var err error
			if path, err = DefaultStoragePath(); err != nil {
				return nil, err
			}
		}
		fs, err := storage.NewFileStorage(path, a.logger)
		if err != nil {
			return nil, fmt.Errorf("session storage: %w", err)
		}
		return fs, nil
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.App { return a.cfg }

func (a *App) Logger() *slog.Logger { return a.logger }

func (a *App) Routes() routes.Config { return a.routes }

func (a *App) Sessions() *session.Store { return a.sessions }

func (a *App) CSRF() *csrf.Manager { return a.tokens }

func (a *App) API() *gateway.Client { return a.api }

func (a *App) Auth() *authapi.Service { return a.auth }

// Registry holds the gateway metrics.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Checks returns the dependency probes, keyed by name.
func (a *App) Checks() map[string]Check {
	out := make(map[string]Check, len(a.checks))
	for k, v := range a.checks {
		out[k] = v
	}
	return out
}

// Warmup starts fetching the CSRF token in the background. Failures are
// logged by the manager; awaiting the future is optional.
func (a *App) Warmup(ctx context.Context) *async.Future[string] {
	return a.tokens.Warmup(ctx)
}

// SignIn starts a sign-in flow that navigates through the App.
func (a *App) SignIn(opts ...signin.Option) *signin.Flow {
	base := []signin.Option{
		signin.WithLogger(a.logger),
		signin.WithRoutes(a.routes),
		signin.WithResendCooldown(a.cfg.ResendCooldown),
	}
	return signin.New(a.auth, a.sessions, a, append(base, opts...)...)
}

// Restore loads the persisted session and places the user on the role's
// home. Without a session the user stays on the login screen and
// session.ErrSessionNotFound is returned.
func (a *App) Restore(ctx context.Context) (*session.Session, error) {
	sess, err := a.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.Navigate(ctx, a.routes.HomeFor(sess.Role))
	return sess, nil
}

// Location returns the path the user is on.
func (a *App) Location() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.location
}

// Navigate moves the user to path and notifies OnNavigate callbacks.
func (a *App) Navigate(ctx context.Context, path string) {
	a.mu.Lock()
	if a.location == path {
		a.mu.Unlock()
		return
	}
	a.location = path
	callbacks := append([]func(string){}, a.onNavigate...)
	a.mu.Unlock()

	a.logger.DebugContext(ctx, "navigated", logger.Path(path))
	for _, fn := range callbacks {
		fn(path)
	}
}

// OnNavigate registers fn to run after every location change.
func (a *App) OnNavigate(fn func(path string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onNavigate = append(a.onNavigate, fn)
}

// Subscribe returns a subscription to gateway events. Use Follow to apply
// their redirects.
func (a *App) Subscribe(ctx context.Context) broadcast.Subscriber[gateway.Event] {
	return a.events.Subscribe(ctx)
}

// Follow applies the redirect carried by ev, if any.
func (a *App) Follow(ctx context.Context, ev gateway.Event) {
	if ev.Redirect != "" {
		a.Navigate(ctx, ev.Redirect)
	}
}

// Listen follows every gateway redirect and then hands the event to fn,
// until ctx is done. It blocks.
func (a *App) Listen(ctx context.Context, fn func(context.Context, gateway.Event)) {
	sub := a.Subscribe(ctx)
	defer sub.Close()
	broadcast.Listen(ctx, sub, func(ctx context.Context, ev gateway.Event) {
		a.Follow(ctx, ev)
		if fn != nil {
			fn(ctx, ev)
		}
	})
}

// Close stops background work and releases connections.
func (a *App) Close() error {
	a.stop()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
