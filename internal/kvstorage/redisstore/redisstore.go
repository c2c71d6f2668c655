// Package redisstore implements kvstorage.Durable on a Redis hash.
//
// All keys of a table live in one hash, so the table is a single flat
// document shared by every machine pointed at the same server. Writes are
// announced on a pub/sub channel, which is what makes changes made on one
// machine visible to subscribers on another.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"buttonkit/internal/kvstorage"

	"github.com/redis/go-redis/v9"
)

// pingTimeout bounds the availability probe.
const pingTimeout = 2 * time.Second

// message is the payload published for every write.
type message struct {
	Key     string `json:"key"`
	Value   []byte `json:"value,omitempty"`
	Old     []byte `json:"old,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// Store implements kvstorage.Durable using one Redis hash per table.
type Store struct {
	client  *redis.Client
	hash    string
	channel string
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for announcement failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New parses redisURL and returns a store for the given hash key.
// The connection is established lazily; use Available to probe it.
func New(redisURL, hash string, opts ...Option) (*Store, error) {
	if err := kvstorage.ValidateTableName(hash); err != nil {
		return nil, err
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewWithClient(redis.NewClient(opt), hash, opts...), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, hash string, opts ...Option) *Store {
	s := &Store{
		client:  client,
		hash:    hash,
		channel: hash + ":changes",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Available pings the server.
func (s *Store) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

// Set stores a value for the given key and announces the change.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts kvstorage.SetOptions) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	if opts.FailIfExists {
		ok, err := s.client.HSetNX(ctx, s.hash, key, value).Result()
		if err != nil {
			return unavailable(err)
		}
		if !ok {
			return fmt.Errorf("key %q: %w", key, kvstorage.ErrAlreadyExists)
		}
		s.announce(ctx, message{Key: key, Value: value})
		return nil
	}

	old, err := s.client.HGet(ctx, s.hash, key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return unavailable(err)
	}
	if err := s.client.HSet(ctx, s.hash, key, value).Err(); err != nil {
		return unavailable(err)
	}
	s.announce(ctx, message{Key: key, Value: value, Old: old})
	return nil
}

// Get retrieves the value for the given key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kvstorage.ValidateKey(key); err != nil {
		return nil, err
	}
	v, err := s.client.HGet(ctx, s.hash, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return v, nil
}

// Update replaces the value for an existing key.
func (s *Store) Update(ctx context.Context, key string, value []byte) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	exists, err := s.client.HExists(ctx, s.hash, key).Result()
	if err != nil {
		return unavailable(err)
	}
	if !exists {
		return fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	return s.Set(ctx, key, value, kvstorage.SetOptions{})
}

// Delete removes a key and announces the removal.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	old, err := s.client.HGet(ctx, s.hash, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	if err != nil {
		return unavailable(err)
	}
	if err := s.client.HDel(ctx, s.hash, key).Err(); err != nil {
		return unavailable(err)
	}
	s.announce(ctx, message{Key: key, Old: old, Removed: true})
	return nil
}

// List returns all keys in the hash.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.hash).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return keys, nil
}

// Watch subscribes to the change channel. Every published write,
// including writes made through this Store, is delivered to fn. The
// returned stop function waits for the delivery goroutine to exit unless
// a delivery is in flight, so fn may call it.
func (s *Store) Watch(fn kvstorage.ChangeFunc) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := s.client.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		sub.Close()
		return nil, unavailable(err)
	}

	f := &feed{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		for msg := range sub.Channel() {
			var m message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil || m.Key == "" {
				continue
			}
			change := kvstorage.Change{Key: m.Key, OldValue: m.Old, NewValue: m.Value}
			if m.Removed {
				change.NewValue = nil
			} else if change.NewValue == nil {
				change.NewValue = []byte{}
			}
			f.deliver(fn, []kvstorage.Change{change})
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			sub.Close()
			f.wait()
		})
	}, nil
}

// feed tracks the delivery goroutine of one Watch.
type feed struct {
	done       chan struct{}
	delivering atomic.Bool
}

func (f *feed) deliver(fn kvstorage.ChangeFunc, changes []kvstorage.Change) {
	f.delivering.Store(true)
	defer f.delivering.Store(false)
	fn(changes)
}

// wait blocks until the delivery goroutine exits. It returns at once
// while a delivery is running, since the caller may be that delivery.
func (f *feed) wait() {
	if f.delivering.Load() {
		return
	}
	<-f.done
}

// announce publishes m. The write it describes is already durable, so a
// failure only costs watchers a notification and is logged.
func (s *Store) announce(ctx context.Context, m message) {
	payload, err := json.Marshal(m)
	if err == nil {
		err = s.client.Publish(ctx, s.channel, payload).Err()
	}
	if err != nil {
		s.logger.Warn("announcing redis change failed", "hash", s.hash, "key", m.Key, "err", err)
	}
}

// unavailable marks connection-level failures so callers can tell them
// apart from missing keys.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", kvstorage.ErrUnavailable, err)
}

var _ kvstorage.Durable = (*Store)(nil)
