package routes_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskdesk/pkg/routes"
	"github.com/dmitrymomot/taskdesk/pkg/session"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := routes.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/dashboard/admin", cfg.HomeFor(session.RoleAdmin))
	assert.Equal(t, "/dashboard/developer", cfg.HomeFor(session.RoleDeveloper))
	assert.Equal(t, "/dashboard/client", cfg.HomeFor(session.RoleClient))
	assert.Equal(t, "/dashboard/client", cfg.HomeFor(""))
}

func TestUnder(t *testing.T) {
	t.Parallel()
	assert.True(t, routes.Under("/auth", "/auth"))
	assert.True(t, routes.Under("/auth/login", "/auth"))
	assert.True(t, routes.Under("/auth/login", "/auth/"))
	assert.False(t, routes.Under("/authors", "/auth"))
	assert.False(t, routes.Under("/dashboard/client", "/auth"))
	assert.True(t, routes.Under("/anything", ""))

	cfg := routes.Default()
	assert.True(t, cfg.IsAuthPath("/auth/reset-password/abc"))
	assert.False(t, cfg.IsAuthPath("/orders"))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("overlay keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routes.yaml")
		require.NoError(t, os.WriteFile(path, []byte("login_path: /signin\nhomes:\n  admin: /ops\n"), 0o600))

		cfg, err := routes.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/signin", cfg.LoginPath)
		assert.Equal(t, "/auth", cfg.AuthPrefix)
		assert.Equal(t, "/ops", cfg.HomeFor(session.RoleAdmin))
		assert.Equal(t, "/dashboard/developer", cfg.HomeFor(session.RoleDeveloper))
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := routes.Parse([]byte("homes:\n  owner: /x\n"))
		assert.ErrorIs(t, err, session.ErrUnknownRole)
	})

	t.Run("relative path", func(t *testing.T) {
		_, err := routes.Parse([]byte("login_path: login\n"))
		assert.ErrorIs(t, err, routes.ErrInvalidRoutes)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := routes.Parse([]byte("homes: [\n"))
		assert.ErrorIs(t, err, routes.ErrInvalidRoutes)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := routes.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
