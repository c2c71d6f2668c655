package config

// Core configuration keys.
const (
	KeyBackend    = "storage.backend"
	KeyTable      = "storage.table"
	KeyRedisURL   = "storage.redis_url"
	KeyRedisKey   = "storage.redis_key"
	KeyLogLevel   = "log.level"
	KeyDebounceMs = "save.debounce_ms"
)

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendRedis      = "redis"
	BackendMemory     = "memory"
)

// DefaultValues returns the default config map for the core keys.
func DefaultValues() map[string]string {
	return map[string]string{
		KeyBackend:    BackendFilesystem,
		KeyTable:      "settings",
		KeyRedisURL:   "redis://localhost:6379/0",
		KeyRedisKey:   "buttonkit-settings",
		KeyLogLevel:   "warn",
		KeyDebounceMs: "400",
	}
}

// ApplyDefaults fills any missing core keys in s with their default values.
func ApplyDefaults(s Store) error {
	defaults := DefaultValues()
	all := s.All()
	for k, v := range defaults {
		if _, exists := all[k]; !exists {
			if err := s.Set(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyDefaultsInMemory fills missing core keys without touching disk.
// Used when the config file is absent or read-only.
func ApplyDefaultsInMemory(s Store) {
	all := s.All()
	for k, v := range DefaultValues() {
		if _, exists := all[k]; !exists {
			s.SetInMemory(k, v)
		}
	}
}
