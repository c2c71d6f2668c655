package config

import (
	"testing"
)

func TestApplyEnvOverrides_Backend(t *testing.T) {
	t.Setenv(EnvBackend, "memory")

	s := &memStore{data: map[string]string{"storage.backend": "filesystem"}}
	ApplyEnvOverrides(s)

	if v, _ := s.Get("storage.backend"); v != "memory" {
		t.Errorf("storage.backend = %q, want %q", v, "memory")
	}
	if v := s.data["storage.backend"]; v != "filesystem" {
		t.Errorf("override persisted: data = %q", v)
	}
}

func TestApplyEnvOverrides_NoOverride(t *testing.T) {
	t.Setenv(EnvBackend, "")
	t.Setenv(EnvRedisURL, "")
	t.Setenv(EnvLogLevel, "")

	s := &memStore{data: map[string]string{
		"storage.backend": "filesystem",
		"log.level":       "warn",
	}}
	ApplyEnvOverrides(s)

	if v, _ := s.Get("storage.backend"); v != "filesystem" {
		t.Errorf("storage.backend = %q, want %q (should not change)", v, "filesystem")
	}
	if v, _ := s.Get("log.level"); v != "warn" {
		t.Errorf("log.level = %q, want %q (should not change)", v, "warn")
	}
}

func TestApplyEnvOverrides_All(t *testing.T) {
	t.Setenv(EnvBackend, "redis")
	t.Setenv(EnvRedisURL, "redis://cache:6379/2")
	t.Setenv(EnvLogLevel, "debug")

	s := &memStore{data: map[string]string{
		"storage.backend":  "filesystem",
		"save.debounce_ms": "400",
	}}
	ApplyEnvOverrides(s)

	if v, _ := s.Get("storage.backend"); v != "redis" {
		t.Errorf("storage.backend = %q, want %q", v, "redis")
	}
	if v, _ := s.Get("storage.redis_url"); v != "redis://cache:6379/2" {
		t.Errorf("storage.redis_url = %q", v)
	}
	if v, _ := s.Get("log.level"); v != "debug" {
		t.Errorf("log.level = %q, want %q", v, "debug")
	}
	// Other keys should remain unchanged
	if v, _ := s.Get("save.debounce_ms"); v != "400" {
		t.Errorf("save.debounce_ms = %q, want %q", v, "400")
	}
}

func TestJSONFromEnv(t *testing.T) {
	for _, tt := range []struct {
		val  string
		want bool
	}{{"1", true}, {"true", true}, {"", false}, {"yes", false}} {
		t.Setenv(EnvJSON, tt.val)
		if got := JSONFromEnv(); got != tt.want {
			t.Errorf("JSONFromEnv() with %q = %v, want %v", tt.val, got, tt.want)
		}
	}
}
