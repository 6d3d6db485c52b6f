package benchmap

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs a function once after a delay. The returned cancel function
// prevents the run if it has not started yet; calling it after the run is a
// no-op.
//
// Implementations used with the engine must run fn on the engine's loop.
type Scheduler interface {
	AfterFunc(delay time.Duration, fn func()) (cancel func())
}

// Loop is a single logical thread of control. Functions posted to it run one
// at a time, in order, on the goroutine that called Run.
//
// All reconciliation state (visible ids, the debouncer, the current dataset)
// is touched only from inside the loop, so none of it needs locking.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
}

// NewLoop creates a loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post queues fn to run on the loop. It never blocks and is safe to call
// from any goroutine, including from inside the loop.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrLoopStopped
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// AfterFunc implements Scheduler: fn is posted to the loop once delay has
// elapsed.
func (l *Loop) AfterFunc(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, func() {
		_ = l.Post(fn)
	})
	return func() { t.Stop() }
}

// Run executes posted functions until ctx is done or Stop is called.
// Functions still queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Stop()

	for {
		for {
			fn := l.next()
			if fn == nil {
				break
			}
			fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
		}
	}
}

// Stop makes Run return and rejects further posts.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	l.stopped = true
	l.queue = nil
	close(l.done)
}

// Done is closed once the loop has been stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from inside the loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}
