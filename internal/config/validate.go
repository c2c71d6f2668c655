package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"buttonkit/internal/kvstorage"
)

// validValues maps known keys to their allowed values.
// An empty slice means any non-empty string is accepted.
var validValues = map[string][]string{
	KeyBackend:    {BackendFilesystem, BackendRedis, BackendMemory},
	KeyTable:      {},
	KeyRedisURL:   {},
	KeyRedisKey:   {},
	KeyLogLevel:   {"debug", "info", "warn", "error"},
	KeyDebounceMs: {},
}

// Validate checks all values in s for known keys. It returns an error
// describing every invalid value found, or nil if all values are valid.
func Validate(s Store) error {
	errs := Issues(s)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
}

// Issues returns one message per invalid known key in s.
func Issues(s Store) []string {
	var errs []string
	for key, val := range s.All() {
		if err := ValidateValue(key, val); err != nil {
			errs = append(errs, err.Error())
		}
	}
	slices.Sort(errs)
	return errs
}

// ValidateValue checks a single value. Unknown keys are always valid.
func ValidateValue(key, val string) error {
	allowed, known := validValues[key]
	if !known {
		return nil
	}

	if len(allowed) > 0 {
		if !slices.Contains(allowed, val) {
			return fmt.Errorf("%s: invalid value %q (allowed: %s)",
				key, val, strings.Join(allowed, ", "))
		}
		return nil
	}

	// Keys with no enumerated values have type-specific checks.
	switch key {
	case KeyDebounceMs:
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: must be a non-negative integer, got %q", key, val)
		}
	case KeyTable, KeyRedisKey:
		if err := kvstorage.ValidateTableName(val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	case KeyRedisURL:
		if u, err := url.Parse(val); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("%s: must be a redis:// or rediss:// url, got %q", key, val)
		}
	}
	return nil
}

