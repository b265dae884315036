package routes

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/taskdesk/pkg/session"
)

// Config maps roles to their home dashboards and names the auth screens.
type Config struct {
	// LoginPath is where unauthenticated users are sent.
	LoginPath string `yaml:"login_path"`
	// AuthPrefix marks the auth screens; no session-expired redirect happens
	// while the user is already under it.
	AuthPrefix string `yaml:"auth_prefix"`
	// DefaultHome is used for roles without an explicit entry.
	DefaultHome string `yaml:"default_home"`
	// Homes maps a role to its dashboard.
	Homes map[session.Role]string `yaml:"homes"`
}

// Default returns the marketplace's built-in routes.
func Default() Config {
	return Config{
		LoginPath:   "/auth/login",
		AuthPrefix:  "/auth",
		DefaultHome: "/dashboard/client",
		Homes: map[session.Role]string{
			session.RoleClient:    "/dashboard/client",
			session.RoleDeveloper: "/dashboard/developer",
			session.RoleAdmin:     "/dashboard/admin",
		},
	}
}

// Load reads a YAML file and overlays it on Default. Keys missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read routes file: %w", err)
	}
	return Parse(raw)
}

// Parse is Load for an in-memory document.
func Parse(raw []byte) (Config, error) {
	var overlay Config
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return Config{}, errors.Join(ErrInvalidRoutes, err)
	}

	cfg := Default()
	if overlay.LoginPath != "" {
		cfg.LoginPath = overlay.LoginPath
	}
	if overlay.AuthPrefix != "" {
		cfg.AuthPrefix = overlay.AuthPrefix
	}
	if overlay.DefaultHome != "" {
		cfg.DefaultHome = overlay.DefaultHome
	}
	for role, home := range overlay.Homes {
		if !role.Valid() {
			return Config{}, fmt.Errorf("%w: %q", session.ErrUnknownRole, role)
		}
		cfg.Homes[role] = home
	}
	return cfg, cfg.Validate()
}

// Validate checks that every configured path is absolute.
func (c Config) Validate() error {
	paths := []string{c.LoginPath, c.AuthPrefix, c.DefaultHome}
	for _, home := range c.Homes {
		paths = append(paths, home)
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: path %q must start with /", ErrInvalidRoutes, p)
		}
	}
	return nil
}

// HomeFor returns the dashboard for role, falling back to DefaultHome.
func (c Config) HomeFor(role session.Role) string {
	if home, ok := c.Homes[role]; ok && home != "" {
		return home
	}
	return c.DefaultHome
}

// IsAuthPath reports whether path is the auth prefix or below it.
func (c Config) IsAuthPath(path string) bool {
	return Under(path, c.AuthPrefix)
}

// Under reports whether path equals prefix or is a descendant segment of it.
// "/authors" is not under "/auth".
func Under(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
