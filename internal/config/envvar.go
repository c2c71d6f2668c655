package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for buttonkit configuration.
const (
	EnvDir      = "BK_DIR"       // Path to the data directory
	EnvBackend  = "BK_BACKEND"   // Override storage.backend
	EnvRedisURL = "BK_REDIS_URL" // Override storage.redis_url
	EnvLogLevel = "BK_LOG_LEVEL" // Override log.level
	EnvJSON     = "BK_JSON"      // Enable JSON output ("1" or "true")
)

// envKeys maps override variables to the config key they replace.
var envKeys = map[string]string{
	EnvBackend:  KeyBackend,
	EnvRedisURL: KeyRedisURL,
	EnvLogLevel: KeyLogLevel,
}

// LoadEnvFile loads variables from a .env file into the process
// environment. Variables already set are left alone. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnvOverrides checks the BK_* env vars and overrides the
// corresponding config values in memory.
// These overrides are not persisted to the config file.
func ApplyEnvOverrides(s Store) {
	for env, key := range envKeys {
		if v := os.Getenv(env); v != "" {
			s.SetInMemory(key, v)
		}
	}
}

// JSONFromEnv reports whether BK_JSON requests JSON output.
func JSONFromEnv() bool {
	v := os.Getenv(EnvJSON)
	return v == "1" || v == "true"
}
