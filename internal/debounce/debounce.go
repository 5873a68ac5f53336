// Package debounce coalesces bursts of keyed events into a single call.
package debounce

import (
	"slices"
	"sync"
	"time"
)

var afterFunc = time.AfterFunc

// Debouncer collects the keys passed to Trigger and, once no trigger arrived
// for the configured delay, calls fn with all of them. Only the most recent
// timer may fire; callbacks from replaced or stopped timers are ignored.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	gen     uint64
	pending map[string]struct{}
	fn      func(keys []string)
}

func New(delay time.Duration, fn func(keys []string)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn, pending: map[string]struct{}{}}
}

// Ensure initializes *d on first use and returns it. Later calls keep the
// existing debouncer and its callback.
func Ensure(d **Debouncer, delay time.Duration, fn func(keys []string)) *Debouncer {
	if *d == nil {
		*d = New(delay, fn)
	}
	return *d
}

// Trigger records key and restarts the quiet period.
func (d *Debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[key] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = afterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	clear(d.pending)
	d.timer = nil
	d.mu.Unlock()

	slices.Sort(keys)
	d.fn(keys)
}

// Stop cancels the pending call and forgets the collected keys.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	clear(d.pending)
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
