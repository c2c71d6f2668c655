package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"buttonkit/internal/kvstorage"
)

func newTestStore(t *testing.T, table string) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, table)
	if err != nil {
		t.Fatalf("New(%q): %v", table, err)
	}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestNew_InvalidTable(t *testing.T) {
	for _, name := range []string{"", "a/b", ".hidden"} {
		_, err := New(t.TempDir(), name)
		if !errors.Is(err, kvstorage.ErrInvalidTable) {
			t.Errorf("New(%q) error = %v, want ErrInvalidTable", name, err)
		}
	}
}

func TestNew_ValidTable(t *testing.T) {
	s, err := New(t.TempDir(), "settings")
	if err != nil {
		t.Fatalf("New(settings): %v", err)
	}
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore(t, "settings")
	ctx := context.Background()

	data := []byte(`"Copy"`)
	if err := s.Set(ctx, "buttonTitle", data, kvstorage.SetOptions{}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get(ctx, "buttonTitle")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get = %q, want %q", got, data)
	}
}

func TestSet_Overwrite(t *testing.T) {
	s := newTestStore(t, "settings")
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v1"), kvstorage.SetOptions{}); err != nil {
		t.Fatalf("Set v1: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v2"), kvstorage.SetOptions{}); err != nil {
		t.Fatalf("Set v2: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get = %q, want %q", got, "v2")
	}
}

func TestSet_FailIfExists(t *testing.T) {
	s := newTestStore(t, "settings")
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v1"), kvstorage.SetOptions{FailIfExists: true}); err != nil {
		t.Fatalf("Set first: %v", err)
	}

	err := s.Set(ctx, "k", []byte("v2"), kvstorage.SetOptions{FailIfExists: true})
	if !errors.Is(err, kvstorage.ErrAlreadyExists) {
		t.Errorf("error = %v, want ErrAlreadyExists", err)
	}

	// Original value should be preserved
	got, _ := s.Get(ctx, "k")
	if string(got) != "v1" {
		t.Errorf("Get = %q, want %q (original)", got, "v1")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t, "settings")

	_, err := s.Get(context.Background(), "nonexistent")
	if !errors.Is(err, kvstorage.ErrKeyNotFound) {
		t.Errorf("error = %v, want ErrKeyNotFound", err)
	}
}

func TestGet_TableRemoved(t *testing.T) {
	s := newTestStore(t, "settings")
	if err := os.RemoveAll(s.Dir()); err != nil {
		t.Fatal(err)
	}

	_, err := s.Get(context.Background(), "buttonTitle")
	if !errors.Is(err, kvstorage.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if s.Available(context.Background()) {
		t.Error("Available() = true after table removal")
	}
}

func TestSet_TableRemoved(t *testing.T) {
	s := newTestStore(t, "settings")
	if err := os.RemoveAll(s.Dir()); err != nil {
		t.Fatal(err)
	}

	err := s.Set(context.Background(), "k", []byte("v"), kvstorage.SetOptions{})
	if !errors.Is(err, kvstorage.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t, "settings")
	ctx := context.Background()

	err := s.Update(ctx, "k", []byte("v"))
	if !errors.Is(err, kvstorage.ErrKeyNotFound) {
		t.Fatalf("Update missing key: error = %v, want ErrKeyNotFound", err)
	}

	if err := s.Set(ctx, "k", []byte("v1"), kvstorage.SetOptions{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Update(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := s.Get(ctx, "k")
	if string(got) != "v2" {
		t.Errorf("Get = %q, want %q", got, "v2")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, "settings")
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), kvstorage.SetOptions{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err := s.Get(ctx, "k")
	if !errors.Is(err, kvstorage.ErrKeyNotFound) {
		t.Errorf("Get after Delete: error = %v, want ErrKeyNotFound", err)
	}

	if err := s.Delete(ctx, "k"); !errors.Is(err, kvstorage.ErrKeyNotFound) {
		t.Errorf("second Delete: error = %v, want ErrKeyNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t, "settings")
	ctx := context.Background()

	for _, k := range []string{"c", "a", "b"} {
		if err := s.Set(ctx, k, []byte("v"), kvstorage.SetOptions{}); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
	}
	// Non-JSON files and directories are ignored
	if err := os.WriteFile(filepath.Join(s.dir, "readme.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("write non-JSON: %v", err)
	}
	if err := os.Mkdir(filepath.Join(s.dir, "subdir"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	keys, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	// ReadDir returns alphabetical order
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("List = %v, want %v", keys, want)
	}
	for i, k := range keys {
		if k != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, k, want[i])
		}
	}
}

func TestAtomicWrite(t *testing.T) {
	s := newTestStore(t, "settings")

	if err := s.Set(context.Background(), "k", []byte("v"), kvstorage.SetOptions{}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			t.Errorf("unexpected file: %s (temp file not cleaned up?)", e.Name())
		}
	}
}

// collector gathers changes delivered by Watch.
type collector struct {
	mu      sync.Mutex
	changes []kvstorage.Change
}

func (c *collector) add(changes []kvstorage.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, changes...)
}

func (c *collector) waitFor(t *testing.T, key string, removed bool) kvstorage.Change {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		for _, ch := range c.changes {
			if ch.Key == key && (ch.NewValue == nil) == removed {
				c.mu.Unlock()
				return ch
			}
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no change for key %q (removed=%v) within timeout", key, removed)
	return kvstorage.Change{}
}

func TestWatch_ReportsWritesFromAnotherHandle(t *testing.T) {
	s := newTestStore(t, "settings")
	ctx := context.Background()
	if err := s.Set(ctx, "buttonTitle", []byte(`"Copy"`), kvstorage.SetOptions{}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var c collector
	stop, err := s.Watch(c.add)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	// A second handle on the same directory stands in for another process.
	other := &Store{dir: s.Dir()}
	if err := other.Set(ctx, "buttonTitle", []byte(`"Grab"`), kvstorage.SetOptions{}); err != nil {
		t.Fatalf("other Set: %v", err)
	}

	ch := c.waitFor(t, "buttonTitle", false)
	if string(ch.OldValue) != `"Copy"` {
		t.Errorf("OldValue = %q, want %q", ch.OldValue, `"Copy"`)
	}
	if string(ch.NewValue) != `"Grab"` {
		t.Errorf("NewValue = %q, want %q", ch.NewValue, `"Grab"`)
	}

	if err := other.Delete(ctx, "buttonTitle"); err != nil {
		t.Fatalf("other Delete: %v", err)
	}
	c.waitFor(t, "buttonTitle", true)
}

func TestWatch_StopIsIdempotent(t *testing.T) {
	s := newTestStore(t, "settings")

	stop, err := s.Watch(func([]kvstorage.Change) {})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	stop()
	stop()
}

func TestWatch_MissingTable(t *testing.T) {
	s, err := New(t.TempDir(), "settings")
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Watch(func([]kvstorage.Change) {})
	if !errors.Is(err, kvstorage.ErrUnavailable) {
		t.Errorf("Watch error = %v, want ErrUnavailable", err)
	}
}
