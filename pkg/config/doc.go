// Package config loads configuration from the environment.
//
// Values come from process environment variables, optionally seeded from
// .env files with github.com/joho/godotenv, and are parsed into structs with
// github.com/caarlos0/env/v11 field tags:
//
//	type HTTP struct {
//		Timeout time.Duration `env:"TASKDESK_HTTP_TIMEOUT" envDefault:"30s"`
//	}
//
//	var cfg HTTP
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Load caches each struct type after its first parse. Reload bypasses the
// cache, and ResetCache clears it between tests.
//
// App bundles every setting of the taskdesk client. LoadApp reads it and runs
// App.Validate.
package config
