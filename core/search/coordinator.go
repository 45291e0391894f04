// Package search debounces search box input into remote lookups.
package search

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
)

// DefaultDelay is the debounce delay used when none is configured.
const DefaultDelay = 500 * time.Millisecond

type (
	// FetchFunc loads the options of a field, filtered by `search` when it is not empty.
	FetchFunc func(ctx context.Context, search string) error

	// ErrorFunc receives the code of a failed fetch.
	ErrorFunc func(code string)

	Option func(*Coordinator)

	// Coordinator serves one search field. At most one debounce timer is pending at any time;
	// a fetch that already started is never cancelled.
	Coordinator struct {
		name    string
		clock   clock.Clock
		delay   time.Duration
		ctx     context.Context
		fetch   FetchFunc
		onError ErrorFunc
		logger  core.Logger

		mu    sync.Mutex
		timer *clock.Timer
		gen   uint64
	}
)

func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) { c.clock = clk }
}

func WithDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithContext sets the context fetches run with.
func WithContext(ctx context.Context) Option {
	return func(c *Coordinator) { c.ctx = ctx }
}

func WithErrorFunc(fn ErrorFunc) Option {
	return func(c *Coordinator) { c.onError = fn }
}

func WithLogger(logger core.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// NewCoordinator returns a Coordinator named `name` (used in logs) running `fetch`.
func NewCoordinator(name string, fetch FetchFunc, opts ...Option) *Coordinator {
	c := &Coordinator{
		name:    name,
		clock:   clock.New(),
		delay:   DefaultDelay,
		ctx:     context.Background(),
		fetch:   fetch,
		onError: func(string) {},
		logger:  core.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search handles new input. With no input and nothing selected, the unfiltered options are fetched.
// With input differing from the selected option's title, options filtered by the input are fetched.
// Otherwise nothing is fetched. Any pending timer is cancelled either way.
// It reports whether a fetch was scheduled.
func (c *Coordinator) Search(searchValue, selectedValue, selectedTitle string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	switch {
	case searchValue == "" && selectedValue == "":
	case searchValue != "" && searchValue != selectedTitle:
	default:
		return false
	}

	gen := c.gen
	c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen, searchValue) })
	return true
}

// Cancel stops the pending timer, if any.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Pending reports whether a timer is waiting to fire.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Coordinator) stopLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) fire(gen uint64, searchValue string) {
	c.mu.Lock()
	if gen != c.gen {
		// replaced or cancelled after the timer went off
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	if err := c.fetch(c.ctx, searchValue); err != nil {
		code := errcode.Extract(err)
		c.logger.Warn("search failed", err, map[string]interface{}{"field": c.name, "search": searchValue, "code": code})
		c.onError(code)
	}
}
