package yamlstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newStore(t *testing.T) (*YAMLStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, path
}

func TestNewEmpty(t *testing.T) {
	s, _ := newStore(t)
	if got := s.All(); len(got) != 0 {
		t.Errorf("empty store All() = %v, want empty map", got)
	}
}

func TestNewLoadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "storage.backend: redis\nlog.level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if v, ok := s.Get("storage.backend"); !ok || v != "redis" {
		t.Errorf("Get(storage.backend) = %q, %v; want %q, true", v, ok, "redis")
	}
	if v, ok := s.Get("log.level"); !ok || v != "debug" {
		t.Errorf("Get(log.level) = %q, %v; want %q, true", v, ok, "debug")
	}
}

func TestNewEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.All(); len(got) != 0 {
		t.Errorf("empty file All() = %v, want empty map", got)
	}
}

func TestNewInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{not yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("New with invalid YAML should fail")
	}
}

func TestSetPersists(t *testing.T) {
	s, path := newStore(t)

	if err := s.Set("storage.table", "work"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok := reopened.Get("storage.table"); !ok || v != "work" {
		t.Errorf("after reopen Get = %q, %v; want %q, true", v, ok, "work")
	}
}

func TestUnset(t *testing.T) {
	s, path := newStore(t)
	if err := s.Set("log.level", "info"); err != nil {
		t.Fatal(err)
	}
	if err := s.Unset("log.level"); err != nil {
		t.Fatalf("Unset: %v", err)
	}
	if _, ok := s.Get("log.level"); ok {
		t.Error("key still present after Unset")
	}

	reopened, _ := New(path)
	if _, ok := reopened.Get("log.level"); ok {
		t.Error("key present on disk after Unset")
	}
}

func TestSetInMemory_NotPersisted(t *testing.T) {
	s, path := newStore(t)
	s.SetInMemory("storage.backend", "memory")

	if v, _ := s.Get("storage.backend"); v != "memory" {
		t.Errorf("Get = %q, want memory", v)
	}

	// A later Set of another key must not write the override to disk.
	if err := s.Set("log.level", "debug"); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "storage.backend") {
		t.Errorf("override written to disk:\n%s", raw)
	}

	// And the override survives the re-read performed by Set.
	if v, _ := s.Get("storage.backend"); v != "memory" {
		t.Errorf("override lost after Set: Get = %q", v)
	}
}

func TestSet_ReplacesOverride(t *testing.T) {
	s, _ := newStore(t)
	s.SetInMemory("log.level", "error")
	if err := s.Set("log.level", "info"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Get("log.level"); v != "info" {
		t.Errorf("Get = %q, want info", v)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	s, _ := newStore(t)
	if err := s.Set("storage.table", "settings"); err != nil {
		t.Fatal(err)
	}
	all := s.All()
	all["storage.table"] = "mutated"
	if v, _ := s.Get("storage.table"); v != "settings" {
		t.Errorf("store mutated through All(): %q", v)
	}
}

func TestAlphabeticalOrdering(t *testing.T) {
	s, path := newStore(t)
	for _, k := range []string{"storage.table", "log.level", "save.debounce_ms"} {
		if err := s.Set(k, "x"); err != nil {
			t.Fatal(err)
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	want := []string{"log.level: x", "save.debounce_ms: x", "storage.table: x"}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSetCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.yaml")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("log.level", "info"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}

func TestConcurrentSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	// Separate stores on the same file simulate separate processes.
	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := New(path)
			if err != nil {
				t.Errorf("New: %v", err)
				return
			}
			if err := s.Set(fmt.Sprintf("custom.key%d", i), "v"); err != nil {
				t.Errorf("Set: %v", err)
			}
		}(i)
	}
	wg.Wait()

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(s.All()); got != n {
		t.Errorf("keys after concurrent Set = %d, want %d", got, n)
	}
}
