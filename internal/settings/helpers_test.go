package settings

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"buttonkit/internal/idgen"
	"buttonkit/internal/kvstorage"
	"buttonkit/internal/kvstorage/memory"
	"buttonkit/internal/logging"
)

// countingBackend counts reads of buttonTitle, which every full load
// performs exactly once, and can hold them until gate is closed.
type countingBackend struct {
	*memory.Store
	titleReads atomic.Int32
	sets       atomic.Int32
	gate       chan struct{}
}

func (c *countingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if key == KeyButtonTitle {
		c.titleReads.Add(1)
		if c.gate != nil {
			<-c.gate
		}
	}
	return c.Store.Get(ctx, key)
}

func (c *countingBackend) Set(ctx context.Context, key string, value []byte, opts kvstorage.SetOptions) error {
	c.sets.Add(1)
	return c.Store.Set(ctx, key, value, opts)
}

func fixedClock() *idgen.Clock {
	t0 := time.UnixMilli(1_700_000_000_000)
	return idgen.NewClockAt(func() time.Time { return t0 })
}

func newTestStore(t *testing.T, backend kvstorage.Durable) *Store {
	t.Helper()
	s := New(backend, WithLogger(logging.Discard()), WithIDs(fixedClock()))
	t.Cleanup(s.Shutdown)
	return s
}

// recorder collects change sets delivered to a subscriber.
type recorder struct {
	got []Changes
}

func (r *recorder) callback(c Changes) {
	r.got = append(r.got, c)
}
