package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"buttonkit/internal/config"
	"buttonkit/internal/config/yamlstore"
	"buttonkit/internal/kvstorage/memory"
	"buttonkit/internal/logging"
	"buttonkit/internal/settings"

	"github.com/spf13/cobra"
)

// setupTestApp returns an App backed by an in-memory settings store and a
// config.yaml in a temp dir.
func setupTestApp(t *testing.T) (*App, *memory.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := yamlstore.New(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("failed to create config store: %v", err)
	}
	backend := memory.New()
	logger := logging.Discard()
	app := &App{
		Settings:    settings.New(backend, settings.WithLogger(logger)),
		Backend:     backend,
		ConfigStore: store,
		Config:      config.Default(),
		ConfigDir:   dir,
		Logger:      logger,
		Out:         &bytes.Buffer{},
		Err:         &bytes.Buffer{},
	}
	t.Cleanup(func() { app.Close() })
	return app, backend
}

// runCmd builds a fresh command for app, executes it with args and
// returns what it wrote to app.Out.
func runCmd(t *testing.T, app *App, newCmd func(*AppProvider) *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := app.Out.(*bytes.Buffer)
	out.Reset()

	cmd := newCmd(NewTestProvider(app))
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), err
}

// mustRun is runCmd that fails the test on error.
func mustRun(t *testing.T, app *App, newCmd func(*AppProvider) *cobra.Command, args ...string) string {
	t.Helper()
	out, err := runCmd(t, app, newCmd, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return out
}

func decodeJSON(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("failed to parse JSON output %q: %v", out, err)
	}
}

func filesCmd(p *AppProvider) *cobra.Command { return newItemsCmd(p, filesCollection) }
func usersCmd(p *AppProvider) *cobra.Command { return newItemsCmd(p, usersCollection) }
