package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is how long the watcher waits after the last file
// event before reporting a change. Pack copies arrive as bursts of writes.
const DefaultDebounceDuration = 500 * time.Millisecond

// debouncer runs the last triggered callback once the quiet period elapses.
type debouncer struct {
	duration time.Duration
	mu       sync.Mutex
	timer    *time.Timer
}

func newDebouncer(d time.Duration) *debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &debouncer{duration: d}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
