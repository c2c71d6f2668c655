// Package idgen generates ids for settings collection entries.
//
// Ids are the decimal Unix millisecond timestamp of creation, so they sort
// by age and stay readable in exported settings. A Clock never hands out
// the same id twice: when two ids are requested within one millisecond the
// later one is bumped past the previous.
package idgen

import (
	"strconv"
	"sync"
	"time"
)

// Clock issues strictly increasing timestamp ids.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClock returns a Clock reading the wall clock.
func NewClock() *Clock {
	return NewClockAt(time.Now)
}

// NewClockAt returns a Clock reading time from now. Tests use a fixed
// function to get deterministic ids.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Next returns a new id.
func (c *Clock) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return strconv.FormatInt(ms, 10)
}

// Observe advances the clock past an existing id so that ids loaded from
// storage are never reissued. Non-numeric ids are ignored.
func (c *Clock) Observe(id string) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.last {
		c.last = n
	}
}

// Time returns the creation time encoded in a timestamp id.
func Time(id string) (time.Time, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(n), true
}
