package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrymomot/taskdesk/pkg/redis"
)

// Storage drivers for the persisted session.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// App is the client's configuration, read from TASKDESK_* variables.
type App struct {
	APIBaseURL  string        `env:"TASKDESK_API_BASE_URL" envDefault:"http://localhost:5000/api"`
	HTTPTimeout time.Duration `env:"TASKDESK_HTTP_TIMEOUT" envDefault:"30s"`

	Env string `env:"TASKDESK_ENV" envDefault:"development"`
	// LogLevel and LogFormat override the preset of Env when set.
	LogLevel  string `env:"TASKDESK_LOG_LEVEL"`
	LogFormat string `env:"TASKDESK_LOG_FORMAT"`

	StorageDriver string `env:"TASKDESK_STORAGE_DRIVER" envDefault:"file"`
	// StoragePath is the session file of the file driver. Empty means
	// $HOME/.taskdesk/session.json.
	StoragePath string `env:"TASKDESK_STORAGE_PATH"`
	Redis       redis.Config

	// RoutesFile optionally overrides the role home routes.
	RoutesFile string `env:"TASKDESK_ROUTES_FILE"`

	ResendCooldown  time.Duration `env:"TASKDESK_RESEND_COOLDOWN" envDefault:"60s"`
	CSRFInvalidCode string        `env:"TASKDESK_CSRF_INVALID_CODE" envDefault:"EBADCSRFTOKEN"`
}

// LoadApp reads envFiles (or the default .env) and parses App.
func LoadApp(envFiles ...string) (App, error) {
	var cfg App
	if err := LoadEnv(envFiles...); err != nil {
		return cfg, err
	}
	if err := Reload(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks values env tags cannot express.
func (a App) Validate() error {
	var errs []error

	u, err := url.Parse(a.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api base url %q must be an absolute http(s) url", a.APIBaseURL))
	}
	switch a.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be text or json", a.LogFormat))
	}
	switch a.StorageDriver {
	case StorageMemory, StorageFile, StorageRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", a.StorageDriver))
	}
	if a.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http timeout must be positive, got %s", a.HTTPTimeout))
	}
	if a.ResendCooldown <= 0 {
		errs = append(errs, fmt.Errorf("resend cooldown must be positive, got %s", a.ResendCooldown))
	}
	if a.CSRFInvalidCode == "" {
		errs = append(errs, errors.New("csrf invalid code must not be empty"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
