package settings

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// DebouncedSaver coalesces bursts of saves, as produced by typing into a
// text field. Each Queue restarts the timer; when it fires, every partial
// queued since the last save is merged (later values win) and saved once.
type DebouncedSaver struct {
	store    *Store
	debounce func(func())

	mu      sync.Mutex
	pending Settings
}

// NewDebouncedSaver returns a saver that waits for after of quiet before
// saving through store.
func NewDebouncedSaver(store *Store, after time.Duration) *DebouncedSaver {
	return &DebouncedSaver{
		store:    store,
		debounce: debounce.New(after),
	}
}

// Queue merges partial into the pending save and restarts the timer.
func (d *DebouncedSaver) Queue(partial Settings) {
	d.mu.Lock()
	if d.pending == nil {
		d.pending = Settings{}
	}
	for k, v := range partial {
		d.pending[k] = v
	}
	d.mu.Unlock()

	d.debounce(func() { d.Flush(context.Background()) })
}

// Flush saves whatever is pending now. It returns true when nothing was
// pending or the save succeeded.
func (d *DebouncedSaver) Flush(ctx context.Context) bool {
	d.mu.Lock()
	partial := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(partial) == 0 {
		return true
	}
	ok := d.store.Save(ctx, partial)
	if !ok {
		d.store.logger.Warn("debounced settings save failed", "keys", len(partial))
	}
	return ok
}

// Pending reports whether a save is waiting for the timer.
func (d *DebouncedSaver) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending) > 0
}
