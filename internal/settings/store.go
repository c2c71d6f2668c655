package settings

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"buttonkit/internal/idgen"
	"buttonkit/internal/kvstorage"

	"golang.org/x/sync/singleflight"
)

// Store is the process-wide settings service. It caches the settings
// document loaded from a durable backend, writes partial updates through
// to it and publishes every change on its Bus.
//
// Storage failures never reach callers: reads fall back to defaults and
// writes report false.
type Store struct {
	backend kvstorage.Durable
	logger  *slog.Logger
	ids     *idgen.Clock
	bus     *Bus

	loads singleflight.Group

	// writeMu serializes Save so that pending and commits stay ordered.
	writeMu sync.Mutex
	// crudMu serializes collection read-modify-write cycles.
	crudMu sync.Mutex

	mu    sync.Mutex
	cache Settings
	// gen is bumped by every commit so an in-flight load does not
	// overwrite newer cache contents.
	gen uint64
	// pending holds encodings this process is currently writing. Feed
	// events that match them are our own echo.
	pending map[string][]byte
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDs sets the clock used for new collection entry ids.
func WithIDs(c *idgen.Clock) Option {
	return func(s *Store) { s.ids = c }
}

// New returns a Store over backend. The cache is empty until the first
// Load or Init.
func New(backend kvstorage.Durable, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		ids:     idgen.NewClock(),
		pending: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bus = NewBus(func() (func(), error) {
		// Feed deltas are computed against the cache, so it must exist
		// before the first event arrives.
		s.Load(context.Background(), true)
		return s.backend.Watch(s.onFeed)
	}, s.logger)
	return s
}

// Init warms the cache.
func (s *Store) Init(ctx context.Context) {
	s.Load(ctx, true)
}

// Shutdown detaches the change feed, drops every subscriber and clears
// the cache.
func (s *Store) Shutdown() {
	s.bus.Close()
	s.ClearCache()
}

// ClearCache drops the cached document; the next Load reads storage.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
}

// Bus returns the store's change bus.
func (s *Store) Bus() *Bus {
	return s.bus
}

// Subscribe registers callback for settings changes. See Bus.Subscribe.
func (s *Store) Subscribe(id string, callback Callback, opts ...SubscribeOption) {
	s.bus.Subscribe(id, callback, opts...)
}

// Unsubscribe removes the subscription registered under id.
func (s *Store) Unsubscribe(id string) {
	s.bus.Unsubscribe(id)
}

// Load returns the settings document. With useCache it returns the cached
// copy when there is one. Otherwise it reads storage; concurrent callers
// share one read. The result is always a private copy holding every
// schema key.
func (s *Store) Load(ctx context.Context, useCache bool) Settings {
	if useCache {
		s.mu.Lock()
		cached := s.cache
		s.mu.Unlock()
		if cached != nil {
			return cached.Clone()
		}
	}

	v, _, _ := s.loads.Do("load", func() (any, error) {
		return s.fetch(ctx), nil
	})
	return v.(Settings).Clone()
}

// fetch reads every schema key from storage and installs the result as
// the cache. It returns the installed document.
func (s *Store) fetch(ctx context.Context) Settings {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	loaded := s.read(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen && s.cache != nil {
		// A save landed while we were reading; the cache is newer.
		return s.cache
	}
	s.cache = loaded
	s.observeIDs(loaded)
	return loaded
}

func (s *Store) read(ctx context.Context) Settings {
	if !s.backend.Available(ctx) {
		s.logger.Warn("settings storage unavailable, using defaults")
		return Defaults()
	}

	out := Defaults()
	for _, key := range Keys() {
		raw, err := s.backend.Get(ctx, key)
		if errors.Is(err, kvstorage.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("reading settings failed, using defaults", "key", key, "err", err)
			return Defaults()
		}
		v, err := Decode(key, raw)
		if err != nil {
			s.logger.Warn("ignoring malformed setting", "key", key, "err", err)
			continue
		}
		out[key] = v
	}
	return out
}

// observeIDs keeps the id clock ahead of every loaded collection id.
// Callers hold s.mu.
func (s *Store) observeIDs(doc Settings) {
	for _, it := range doc.Items(KeyFiles) {
		s.ids.Observe(it.ID)
	}
	for _, it := range doc.Items(KeyUsernames) {
		s.ids.Observe(it.ID)
	}
	for _, opt := range doc.DropdownOptions() {
		s.ids.Observe(opt.ID)
	}
}

// Get returns the value stored at key, or def when key is not a setting.
func (s *Store) Get(ctx context.Context, key string, def any) any {
	if v, ok := s.Load(ctx, true)[key]; ok {
		return v
	}
	return def
}

// Set saves a single key.
func (s *Store) Set(ctx context.Context, key string, value any) bool {
	return s.Save(ctx, Settings{key: value})
}

// Reset restores keys to their defaults. With no keys every setting is reset.
func (s *Store) Reset(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		keys = Keys()
	}
	partial := Settings{}
	for _, k := range keys {
		if !Known(k) {
			s.logger.Warn("refusing to reset unknown setting", "key", k)
			return false
		}
		partial[k] = Default(k)
	}
	return s.Save(ctx, partial)
}

// Save writes partial to storage, merges it into the cache and publishes
// a change for every key in partial. Unknown keys or values of the wrong
// type reject the whole save before anything is written. It returns false
// when storage is unavailable or a write fails.
func (s *Store) Save(ctx context.Context, partial Settings) bool {
	changes, ok := s.save(ctx, partial)
	s.bus.Publish(changes)
	return ok
}

// save performs Save without publishing. Keys written before a failure
// stay durable and are still returned as changes.
func (s *Store) save(ctx context.Context, partial Settings) (Changes, bool) {
	if len(partial) == 0 {
		return nil, true
	}

	values := make(Settings, len(partial))
	encoded := make(map[string][]byte, len(partial))
	for key, v := range partial {
		cv, err := Coerce(key, v)
		if err == nil {
			encoded[key], err = Encode(cv)
		}
		if err != nil {
			s.logger.Warn("rejecting settings save", "key", key, "err", err)
			return nil, false
		}
		values[key] = cv
	}

	// The cache must exist so the published changes carry old values.
	s.Load(ctx, true)

	if !s.backend.Available(ctx) {
		s.logger.Warn("settings storage unavailable, save dropped")
		return nil, false
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	keys := make([]string, 0, len(encoded))
	s.mu.Lock()
	for key, raw := range encoded {
		s.pending[key] = raw
		keys = append(keys, key)
	}
	s.mu.Unlock()
	sort.Strings(keys)

	written := make([]string, 0, len(keys))
	ok := true
	for _, key := range keys {
		if err := s.backend.Set(ctx, key, encoded[key], kvstorage.SetOptions{}); err != nil {
			s.logger.Warn("writing setting failed", "key", key, "err", err)
			ok = false
			break
		}
		written = append(written, key)
	}

	return s.commit(keys, written, values), ok
}

// commit merges the written keys into the cache and clears the pending
// marks for every attempted key. It returns the change set to publish.
func (s *Store) commit(attempted, written []string, values Settings) Changes {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range attempted {
		delete(s.pending, key)
	}
	if len(written) == 0 {
		return nil
	}
	if s.cache == nil {
		s.cache = Defaults()
	}
	s.gen++

	changes := make(Changes, len(written))
	for _, key := range written {
		changes[key] = Change{OldValue: cloneValue(s.cache[key]), NewValue: cloneValue(values[key])}
		s.cache[key] = cloneValue(values[key])
	}
	s.observeIDs(values)
	return changes
}

// onFeed handles changes reported by the backend's change feed. The feed
// is treated as a hint: the current value is read back from storage and
// compared with the cache, so echoes of our own writes and reordered
// events are dropped. When the cache has been cleared the old values
// come from the events and the cache is reloaded before diffing.
func (s *Store) onFeed(events []kvstorage.Change) {
	ctx := context.Background()

	s.mu.Lock()
	cleared := s.cache == nil
	s.mu.Unlock()
	var prior Settings
	if cleared {
		prior = priorValues(events)
		s.Load(ctx, true)
	}

	type update struct {
		key   string
		raw   []byte
		value any
	}
	var updates []update
	for _, ev := range events {
		if !Known(ev.Key) {
			continue
		}
		raw, err := s.backend.Get(ctx, ev.Key)
		var value any
		switch {
		case errors.Is(err, kvstorage.ErrKeyNotFound):
			raw, value = nil, Default(ev.Key)
		case err != nil:
			s.logger.Warn("reading changed setting failed", "key", ev.Key, "err", err)
			continue
		default:
			if value, err = Decode(ev.Key, raw); err != nil {
				s.logger.Warn("ignoring malformed setting change", "key", ev.Key, "err", err)
				continue
			}
		}
		updates = append(updates, update{key: ev.Key, raw: raw, value: value})
	}

	s.mu.Lock()
	changes := Changes{}
	for _, u := range updates {
		if p, ok := s.pending[u.key]; ok && bytes.Equal(p, u.raw) {
			continue
		}
		old, ok := prior[u.key]
		if !ok {
			if s.cache == nil {
				old = Default(u.key)
			} else {
				old = s.cache[u.key]
			}
		}
		if reflect.DeepEqual(old, u.value) {
			continue
		}
		changes[u.key] = Change{OldValue: cloneValue(old), NewValue: cloneValue(u.value)}
		if s.cache != nil {
			s.cache[u.key] = cloneValue(u.value)
		}
	}
	if len(changes) > 0 && s.cache != nil {
		s.gen++
		s.observeIDs(s.cache)
	}
	s.mu.Unlock()

	if len(changes) > 0 {
		s.logger.Debug("settings changed externally", "keys", changes.Keys())
		s.bus.Publish(changes)
	}
}

// priorValues decodes the value each key held before the first event
// that touched it. Keys that did not exist, or whose old encoding is
// unreadable, map to their defaults.
func priorValues(events []kvstorage.Change) Settings {
	out := Settings{}
	for _, ev := range events {
		if _, seen := out[ev.Key]; seen || !Known(ev.Key) {
			continue
		}
		out[ev.Key] = Default(ev.Key)
		if ev.OldValue == nil {
			continue
		}
		if v, err := Decode(ev.Key, ev.OldValue); err == nil {
			out[ev.Key] = v
		}
	}
	return out
}
