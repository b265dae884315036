package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.RWMutex
	cache   = make(map[reflect.Type]any)

	defaultEnvOnce sync.Once
)

// LoadEnv reads the given .env files into the process environment. Variables
// already set are not overridden, so earlier files win over later ones and the
// real environment wins over both. With no paths, the .env file of the working
// directory is loaded if it exists.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		loadDefaultEnv()
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrEnvFile, err)
	}
	return nil
}

// MustLoadEnv is LoadEnv that panics on error.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

func loadDefaultEnv() {
	defaultEnvOnce.Do(func() {
		// A missing .env is fine.
		_ = godotenv.Load()
	})
}

// Load parses environment variables into v using its `env` tags. The first
// successful parse of a type is cached and later calls copy the cached value.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	loadDefaultEnv()

	key := reflect.TypeFor[T]()
	cacheMu.RLock()
	cached, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}
	return parseInto(key, v)
}

// Reload parses v again, replacing any cached value of its type.
func Reload[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	return parseInto(reflect.TypeFor[T](), v)
}

// MustLoad is Load that panics on error.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// ResetCache forgets every parsed type.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	clear(cache)
}

func parseInto[T any](key reflect.Type, v *T) error {
	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cacheMu.Lock()
	cache[key] = parsed
	cacheMu.Unlock()

	*v = parsed
	return nil
}
