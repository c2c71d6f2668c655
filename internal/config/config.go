// Package config handles buttonkit CLI configuration: which durable store
// holds the settings document, logging and save debouncing.
package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config is the typed view of the core configuration keys.
type Config struct {
	Backend  string
	Table    string
	RedisURL string
	RedisKey string
	LogLevel string
	Debounce time.Duration
}

// Default returns the default configuration.
func Default() Config {
	cfg, _ := parse(DefaultValues())
	return cfg
}

// FromStore reads the core keys from s, falling back to defaults for
// missing keys. Values are validated first.
func FromStore(s Store) (Config, error) {
	if err := Validate(s); err != nil {
		return Config{}, err
	}
	values := DefaultValues()
	for k, v := range s.All() {
		if _, known := values[k]; known {
			values[k] = v
		}
	}
	return parse(values)
}

func parse(values map[string]string) (Config, error) {
	ms, err := strconv.Atoi(values[KeyDebounceMs])
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyDebounceMs, err)
	}
	return Config{
		Backend:  values[KeyBackend],
		Table:    values[KeyTable],
		RedisURL: values[KeyRedisURL],
		RedisKey: values[KeyRedisKey],
		LogLevel: values[KeyLogLevel],
		Debounce: time.Duration(ms) * time.Millisecond,
	}, nil
}
