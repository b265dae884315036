package taskdesk_test

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskdesk"
	"github.com/dmitrymomot/taskdesk/internal/apitest"
	"github.com/dmitrymomot/taskdesk/pkg/config"
	"github.com/dmitrymomot/taskdesk/pkg/gateway"
	"github.com/dmitrymomot/taskdesk/pkg/logger"
	"github.com/dmitrymomot/taskdesk/pkg/session"
	"github.com/dmitrymomot/taskdesk/pkg/storage"
	"github.com/dmitrymomot/taskdesk/svc/authapi"
)

func testConfig(srv *apitest.Server) config.App {
	return config.App{
		APIBaseURL:      srv.APIURL(),
		HTTPTimeout:     5 * time.Second,
		Env:             "development",
		StorageDriver:   config.StorageMemory,
		ResendCooldown:  time.Minute,
		CSRFInvalidCode: apitest.CSRFCode,
	}
}

func newApp(t *testing.T, cfg config.App, opts ...taskdesk.Option) *taskdesk.App {
	t.Helper()
	opts = append([]taskdesk.Option{taskdesk.WithLogger(logger.Discard())}, opts...)
	app, err := taskdesk.New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func login(t *testing.T, app *taskdesk.App, srv *apitest.Server, role session.Role) {
	t.Helper()
	srv.Handle(http.MethodPost, authapi.PathLogin, apitest.JSON(http.StatusOK, map[string]string{
		"_id": "u1", "name": "Ada", "email": "ada@example.com", "role": string(role), "token": "tok",
	}))
	flow := app.SignIn()
	require.NoError(t, flow.SubmitCredentials(context.Background(), authapi.Credentials{
		Email: "ada@example.com", Password: "secret",
	}))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	cfg := testConfig(srv)
	cfg.StorageDriver = "tape"

	_, err := taskdesk.New(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestSignInNavigatesThroughApp(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	app := newApp(t, testConfig(srv))

	var (
		mu      sync.Mutex
		visited []string
	)
	app.OnNavigate(func(path string) {
		mu.Lock()
		defer mu.Unlock()
		visited = append(visited, path)
	})
	assert.Equal(t, "/auth/login", app.Location())

	login(t, app, srv, session.RoleDeveloper)

	assert.Equal(t, "/dashboard/developer", app.Location())
	mu.Lock()
	assert.Equal(t, []string{"/dashboard/developer"}, visited)
	mu.Unlock()

	sess, err := app.Sessions().Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, 1, srv.CSRFFetches())
}

func TestWarmupFetchesTokenBeforeFirstWrite(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	app := newApp(t, testConfig(srv))

	token, err := app.Warmup(context.Background()).Await()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, srv.CSRFFetches())
	assert.Empty(t, srv.CallsTo(http.MethodPost, authapi.PathLogin))

	login(t, app, srv, session.RoleClient)
	assert.Equal(t, 1, srv.CSRFFetches(), "login reuses the warmed token")
}

func TestUnauthorizedEventRedirectsToLogin(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	app := newApp(t, testConfig(srv))
	ctx := context.Background()

	login(t, app, srv, session.RoleClient)
	srv.Handle(http.MethodGet, "/tasks", apitest.JSON(http.StatusUnauthorized, map[string]string{"message": "jwt expired"}))

	sub := app.Subscribe(ctx)
	defer sub.Close()

	err := app.API().Get(ctx, "/tasks", nil)
	require.ErrorIs(t, err, gateway.ErrUnauthorized)

	select {
	case ev := <-sub.Receive():
		assert.Equal(t, gateway.KindUnauthorized, ev.Kind)
		assert.Equal(t, "/auth/login", ev.Redirect)
		app.Follow(ctx, ev)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	assert.Equal(t, "/auth/login", app.Location())
	_, err = app.Sessions().Load(ctx)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestListenFollowsRedirects(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	app := newApp(t, testConfig(srv))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	login(t, app, srv, session.RoleClient)
	app.Navigate(ctx, "/dashboard/admin/users")
	srv.Handle(http.MethodGet, "/admin/users", apitest.JSON(http.StatusForbidden, map[string]string{"message": "nope"}))

	received := make(chan gateway.Event, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		app.Listen(ctx, func(_ context.Context, ev gateway.Event) { received <- ev })
	}()
	<-ready
	// Listen subscribes asynchronously; retry the call until it is seen.
	require.Eventually(t, func() bool {
		_ = app.API().Get(ctx, "/admin/users", nil)
		select {
		case ev := <-received:
			return ev.Kind == gateway.KindForbidden
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "/dashboard/client", app.Location())
}

func TestRestore(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	backend := storage.NewMemoryStorage()
	ctx := context.Background()

	app := newApp(t, testConfig(srv), taskdesk.WithStorage(backend))
	_, err := app.Restore(ctx)
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Equal(t, "/auth/login", app.Location())

	require.NoError(t, session.NewStore(backend).Save(ctx, &session.Session{Role: session.RoleAdmin, Token: "t"}))
	sess, err := app.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.RoleAdmin, sess.Role)
	assert.Equal(t, "/dashboard/admin", app.Location())
}

func TestFileStorageSeesOtherProcesses(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	cfg := testConfig(srv)
	cfg.StorageDriver = config.StorageFile
	cfg.StoragePath = filepath.Join(t.TempDir(), "session.json")
	app := newApp(t, cfg)
	ctx := context.Background()

	login(t, app, srv, session.RoleClient)

	other, err := storage.NewFileStorage(cfg.StoragePath, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, other.Delete(ctx, session.StorageKey))

	assert.Eventually(t, func() bool {
		_, err := app.Sessions().Load(ctx)
		return err != nil
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRedisStorageAndChecks(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	mr := miniredis.RunT(t)
	cfg := testConfig(srv)
	cfg.StorageDriver = config.StorageRedis
	cfg.Redis.ConnectionURL = "redis://" + mr.Addr()
	cfg.Redis.Namespace = "td"
	cfg.Redis.RetryAttempts = 1
	cfg.Redis.ConnectTimeout = time.Second
	app := newApp(t, cfg)
	ctx := context.Background()

	login(t, app, srv, session.RoleClient)
	assert.True(t, mr.Exists("td:"+session.StorageKey))

	checks := app.Checks()
	require.Contains(t, checks, "api")
	require.Contains(t, checks, "redis")
	assert.NoError(t, checks["api"](ctx))
	assert.NoError(t, checks["redis"](ctx))

	mr.Close()
	assert.Error(t, checks["redis"](ctx))
}

func TestMetricsRegistered(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	app := newApp(t, testConfig(srv))

	login(t, app, srv, session.RoleClient)

	families, err := app.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "taskdesk_gateway_requests_total")
}
