package benchmap

import (
	"strings"
	"time"
)

// DefaultQuietInterval is the debounce delay after the last notification
// before a refresh runs.
const DefaultQuietInterval = 200 * time.Millisecond

// Reason records why a refresh was requested. Reasons from coalesced
// notifications are OR-ed together.
type Reason uint8

const (
	// ReasonRegion: the user panned or zoomed.
	ReasonRegion Reason = 1 << iota

	// ReasonDataset: a new dataset generation was installed.
	ReasonDataset

	// ReasonPriority: the priority set changed.
	ReasonPriority

	// ReasonBacklog: the previous refresh hit the add cap and left points
	// waiting.
	ReasonBacklog
)

// String lists the reasons set in r, e.g. "region|dataset".
func (r Reason) String() string {
	if r == 0 {
		return "none"
	}
	names := []string{"region", "dataset", "priority", "backlog"}
	var parts []string
	for i, name := range names {
		if r&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Debouncer coalesces bursts of notifications into a single call.
//
// Each Notify supersedes any pending call and schedules a new one a quiet
// interval after itself. Cancellation uses a generation counter: every
// Notify bumps the generation, and a scheduled task only runs if its
// generation is still the latest when it fires. A superseded task therefore
// never runs even if its timer could not be stopped in time.
//
// Debouncer is not safe for concurrent use. Notify, Cancel and the scheduled
// callbacks must all run on the same loop.
type Debouncer struct {
	quiet   time.Duration
	sched   Scheduler
	fire    func(Reason)
	gen     uint64
	pending bool
	reasons Reason
	cancel  func()
	fired   uint64
}

// NewDebouncer creates a debouncer that calls fire on sched after quiet has
// passed without another Notify. A zero quiet interval uses
// DefaultQuietInterval.
func NewDebouncer(quiet time.Duration, sched Scheduler, fire func(Reason)) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietInterval
	}
	return &Debouncer{
		quiet: quiet,
		sched: sched,
		fire:  fire,
	}
}

// Notify requests a call, replacing any pending one.
func (d *Debouncer) Notify(reason Reason) {
	d.stopTimer()

	d.gen++
	d.pending = true
	d.reasons |= reason

	gen := d.gen
	d.cancel = d.sched.AfterFunc(d.quiet, func() { d.run(gen) })
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.stopTimer()
	d.gen++
	d.pending = false
	d.reasons = 0
}

// Flush runs the pending call now instead of waiting for the quiet interval.
// It reports whether a call was made.
func (d *Debouncer) Flush() bool {
	if !d.pending {
		return false
	}
	d.stopTimer()
	d.gen++
	d.runNow()
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	return d.pending
}

// Fired returns how many calls have been made.
func (d *Debouncer) Fired() uint64 {
	return d.fired
}

// Duration returns the quiet interval.
func (d *Debouncer) Duration() time.Duration {
	return d.quiet
}

func (d *Debouncer) run(gen uint64) {
	if gen != d.gen || !d.pending {
		return // superseded or cancelled
	}
	d.cancel = nil
	d.runNow()
}

func (d *Debouncer) runNow() {
	reasons := d.reasons
	d.reasons = 0
	d.pending = false
	d.fired++
	d.fire(reasons)
}

func (d *Debouncer) stopTimer() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
