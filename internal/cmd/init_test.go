package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"buttonkit/internal/config"
	"buttonkit/internal/config/yamlstore"
)

func TestInit(t *testing.T) {
	t.Run("creates data directory structure", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Chdir(tmpDir)
		t.Setenv(config.EnvDir, "")

		var out bytes.Buffer
		cmd := newInitCmd(&AppProvider{Out: &out})
		cmd.SetArgs([]string{})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("init command failed: %v", err)
		}

		dataDir := filepath.Join(tmpDir, ".buttonkit")
		for _, p := range []string{
			filepath.Join(dataDir, "config.yaml"),
			filepath.Join(dataDir, "settings"),
			filepath.Join(dataDir, ".gitignore"),
		} {
			if _, err := os.Stat(p); os.IsNotExist(err) {
				t.Errorf("%s was not created", p)
			}
		}

		if !strings.Contains(out.String(), "Initialized buttonkit in") {
			t.Errorf("unexpected output: %q", out.String())
		}
		if !strings.Contains(out.String(), "Backend: filesystem") {
			t.Errorf("output missing backend: %q", out.String())
		}
	})

	t.Run("writes flat default config", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")

		cmd := newInitCmd(&AppProvider{Out: &bytes.Buffer{}, DataPath: dir})
		cmd.SetArgs([]string{})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("init command failed: %v", err)
		}

		store, err := yamlstore.New(filepath.Join(dir, "config.yaml"))
		if err != nil {
			t.Fatalf("loading config store: %v", err)
		}
		for key, want := range config.DefaultValues() {
			if got, ok := store.Get(key); !ok || got != want {
				t.Errorf("config %s = %q, %v; want %q", key, got, ok, want)
			}
		}
	})

	t.Run("fails if already initialized", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log.level: info\n"), 0644); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		cmd := newInitCmd(&AppProvider{Out: &bytes.Buffer{}, DataPath: dir})
		cmd.SetArgs([]string{})
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true

		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "already initialized") {
			t.Errorf("error = %v, want already initialized", err)
		}
	})

	t.Run("force keeps existing values", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log.level: info\n"), 0644); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		cmd := newInitCmd(&AppProvider{Out: &bytes.Buffer{}, DataPath: dir})
		cmd.SetArgs([]string{"--force"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("init --force failed: %v", err)
		}

		store, err := yamlstore.New(filepath.Join(dir, "config.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if v, _ := store.Get(config.KeyLogLevel); v != "info" {
			t.Errorf("log.level = %q, want info preserved", v)
		}
		if v, _ := store.Get(config.KeyBackend); v != config.BackendFilesystem {
			t.Errorf("storage.backend = %q, want default filled in", v)
		}
	})

	t.Run("backend flag is recorded", func(t *testing.T) {
		dir := t.TempDir()

		var out bytes.Buffer
		cmd := newInitCmd(&AppProvider{Out: &out, DataPath: dir, Backend: config.BackendMemory})
		cmd.SetArgs([]string{})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("init command failed: %v", err)
		}

		store, err := yamlstore.New(filepath.Join(dir, "config.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if v, _ := store.Get(config.KeyBackend); v != config.BackendMemory {
			t.Errorf("storage.backend = %q", v)
		}
		if _, err := os.Stat(filepath.Join(dir, "settings")); !os.IsNotExist(err) {
			t.Error("memory backend should not create a settings table")
		}
	})

	t.Run("BK_DIR is honoured", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "from-env")
		t.Setenv(config.EnvDir, dir)

		cmd := newInitCmd(&AppProvider{Out: &bytes.Buffer{}})
		cmd.SetArgs([]string{})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("init command failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
			t.Errorf("config.yaml not created under BK_DIR: %v", err)
		}
	})
}

func TestInitDir_PathWins(t *testing.T) {
	t.Setenv(config.EnvDir, "/from/env")

	got, err := initDir("/explicit", true)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Clean("/explicit") {
		t.Errorf("initDir = %q, want /explicit", got)
	}
}
