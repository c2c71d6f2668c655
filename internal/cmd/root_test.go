package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"buttonkit/internal/config"
)

// runRoot executes the full command tree against a fresh provider, the
// way separate bk invocations would.
func runRoot(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	provider := &AppProvider{Out: &out, Err: io.Discard}
	defer provider.Close()

	root := newRootCmd(provider)
	root.SetArgs(append([]string{"--path", dir}, args...))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func TestRoot_FilesystemRoundTrip(t *testing.T) {
	for _, env := range []string{config.EnvDir, config.EnvBackend, config.EnvLogLevel, config.EnvJSON} {
		t.Setenv(env, "")
	}
	dir := t.TempDir()

	if _, err := runRoot(t, dir, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := runRoot(t, dir, "files", "add", "Podfile.lock"); err != nil {
		t.Fatalf("files add: %v", err)
	}
	if _, err := runRoot(t, dir, "settings", "set", "buttonTitle", "Copy key"); err != nil {
		t.Fatalf("settings set: %v", err)
	}

	out, err := runRoot(t, dir, "settings", "get", "buttonTitle")
	if err != nil {
		t.Fatalf("settings get: %v", err)
	}
	if out != "Copy key\n" {
		t.Errorf("buttonTitle = %q after reopening", out)
	}

	out, err = runRoot(t, dir, "hide", "ios/Podfile.lock", "README.md")
	if err != nil {
		t.Fatalf("hide: %v", err)
	}
	if out != "ios/Podfile.lock\n" {
		t.Errorf("hide output = %q", out)
	}
}

func TestRoot_UninitializedUsesDefaults(t *testing.T) {
	for _, env := range []string{config.EnvDir, config.EnvBackend, config.EnvLogLevel, config.EnvJSON} {
		t.Setenv(env, "")
	}
	dir := t.TempDir()

	out, err := runRoot(t, dir, "--backend", "memory", "render", "--option", "Commit message",
		"--var", "ticket_id=OPS-7", "--var", "title=Rotate keys")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "OPS-7: Rotate keys\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRoot_InvalidBackendFlag(t *testing.T) {
	t.Setenv(config.EnvBackend, "")
	dir := t.TempDir()

	_, err := runRoot(t, dir, "--backend", "sqlite", "settings", "list")
	if err == nil || !strings.Contains(err.Error(), "storage.backend") {
		t.Errorf("error = %v", err)
	}
}
