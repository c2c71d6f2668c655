package settings

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Change is the old and new value of one settings key.
type Change struct {
	OldValue any `json:"oldValue"`
	NewValue any `json:"newValue"`
}

// Changes maps each changed key to its transition.
type Changes map[string]Change

// Keys returns the changed keys in sorted order.
func (c Changes) Keys() []string {
	keys := lo.Keys(c)
	sort.Strings(keys)
	return keys
}

// Callback receives change sets from the Bus.
type Callback func(Changes)

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscription)

// WithKeys restricts a subscription to the given keys. The callback only
// fires when a change set touches one of them and only sees those entries.
func WithKeys(keys ...string) SubscribeOption {
	return func(sub *subscription) {
		if len(keys) > 0 {
			sub.keys = lo.Uniq(keys)
		}
	}
}

type subscription struct {
	id       string
	callback Callback
	keys     []string
}

// filter returns the part of changes this subscription wants, or nil.
func (sub *subscription) filter(changes Changes) Changes {
	if sub.keys == nil {
		return changes
	}
	out := lo.PickByKeys(changes, sub.keys)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Bus fans change sets out to subscribers. It attaches to an external
// change feed when the first subscriber arrives and detaches when the last
// one leaves.
type Bus struct {
	attach func() (stop func(), err error)
	logger *slog.Logger

	mu   sync.Mutex
	subs []*subscription
	stop func()
}

// NewBus returns a dormant bus. attach is called to start the external
// feed; it may be nil when there is no feed.
func NewBus(attach func() (func(), error), logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{attach: attach, logger: logger}
}

// Subscribe registers callback under id. Subscribing again with the same
// id replaces the earlier registration. A failure to attach the feed is
// logged; the subscription still receives changes made in this process.
func (b *Bus) Subscribe(id string, callback Callback, opts ...SubscribeOption) {
	sub := &subscription{id: id, callback: callback}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, i, ok := lo.FindIndexOf(b.subs, func(s *subscription) bool { return s.id == id }); ok {
		b.subs[i] = sub
	} else {
		b.subs = append(b.subs, sub)
	}

	if b.stop == nil && b.attach != nil {
		stop, err := b.attach()
		if err != nil {
			b.logger.Warn("settings change feed unavailable", "err", err)
			return
		}
		b.stop = stop
		b.logger.Debug("attached settings change feed")
	}
}

// Unsubscribe removes the registration under id. When no subscribers
// remain the external feed is detached.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	b.subs = lo.Reject(b.subs, func(s *subscription, _ int) bool { return s.id == id })
	stop := b.detachLocked()
	b.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Close drops every subscriber and detaches the feed.
func (b *Bus) Close() {
	b.mu.Lock()
	b.subs = nil
	stop := b.detachLocked()
	b.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// detachLocked clears the feed when nobody is subscribed and returns the
// stop function to call once b.mu is released.
func (b *Bus) detachLocked() func() {
	if len(b.subs) > 0 || b.stop == nil {
		return nil
	}
	stop := b.stop
	b.stop = nil
	b.logger.Debug("detached settings change feed")
	return stop
}

// Active reports whether the external feed is attached.
func (b *Bus) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stop != nil
}

// Len returns the number of subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers changes to every interested subscriber. Callbacks run
// outside the bus lock; a panicking callback is logged and does not stop
// delivery to the others.
func (b *Bus) Publish(changes Changes) {
	if len(changes) == 0 {
		return
	}
	b.mu.Lock()
	subs := append([]*subscription(nil), b.subs...)
	b.mu.Unlock()

	for _, sub := range subs {
		if filtered := sub.filter(changes); filtered != nil {
			b.deliver(sub, filtered)
		}
	}
}

func (b *Bus) deliver(sub *subscription, changes Changes) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("settings subscriber panicked",
				"subscriber", sub.id, "panic", fmt.Sprint(r))
		}
	}()
	sub.callback(changes)
}
