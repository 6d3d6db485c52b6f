package benchmap

import (
	"testing"
	"time"

	"github.com/beetlebugorg/benchmap/internal/testutil"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	sched := testutil.NewManualScheduler()
	var fired []Reason
	d := NewDebouncer(200*time.Millisecond, sched, func(r Reason) {
		fired = append(fired, r)
	})

	// Five notifications 50ms apart never leave a quiet gap
	for i := 0; i < 5; i++ {
		d.Notify(ReasonRegion)
		sched.Advance(50 * time.Millisecond)
	}
	if len(fired) != 0 {
		t.Fatalf("Expected no call during burst, got %d", len(fired))
	}

	sched.Advance(200 * time.Millisecond)
	if len(fired) != 1 {
		t.Fatalf("Expected exactly 1 call after burst, got %d", len(fired))
	}
	if d.Pending() {
		t.Error("Expected nothing pending after the call")
	}
	if sched.Pending() != 0 {
		t.Errorf("Expected superseded timers to be cancelled, %d still scheduled", sched.Pending())
	}
}

func TestDebouncerSpacedNotifications(t *testing.T) {
	sched := testutil.NewManualScheduler()
	calls := 0
	d := NewDebouncer(200*time.Millisecond, sched, func(Reason) { calls++ })

	for i := 0; i < 4; i++ {
		d.Notify(ReasonRegion)
		sched.Advance(250 * time.Millisecond)
	}

	if calls != 4 {
		t.Errorf("Expected 4 calls for spaced notifications, got %d", calls)
	}
	if d.Fired() != 4 {
		t.Errorf("Expected Fired() = 4, got %d", d.Fired())
	}
}

func TestDebouncerFiresAfterQuietInterval(t *testing.T) {
	sched := testutil.NewManualScheduler()
	calls := 0
	d := NewDebouncer(200*time.Millisecond, sched, func(Reason) { calls++ })

	d.Notify(ReasonRegion)
	sched.Advance(199 * time.Millisecond)
	if calls != 0 {
		t.Fatal("Expected no call before the quiet interval elapsed")
	}
	sched.Advance(time.Millisecond)
	if calls != 1 {
		t.Errorf("Expected call at exactly the quiet interval, got %d calls", calls)
	}
}

func TestDebouncerMergesReasons(t *testing.T) {
	sched := testutil.NewManualScheduler()
	var got Reason
	d := NewDebouncer(100*time.Millisecond, sched, func(r Reason) { got = r })

	d.Notify(ReasonRegion)
	d.Notify(ReasonDataset)
	d.Notify(ReasonRegion)
	sched.Advance(100 * time.Millisecond)

	if got != ReasonRegion|ReasonDataset {
		t.Errorf("Expected region|dataset, got %s", got)
	}

	d.Notify(ReasonPriority)
	sched.Advance(100 * time.Millisecond)
	if got != ReasonPriority {
		t.Errorf("Expected reasons to reset after a call, got %s", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	sched := testutil.NewManualScheduler()
	calls := 0
	d := NewDebouncer(100*time.Millisecond, sched, func(Reason) { calls++ })

	d.Notify(ReasonRegion)
	d.Cancel()
	sched.Advance(time.Second)

	if calls != 0 {
		t.Errorf("Expected no call after Cancel, got %d", calls)
	}
	if d.Pending() {
		t.Error("Expected nothing pending after Cancel")
	}
}

// A superseded task that still runs (its cancel came too late) must be a
// no-op.
func TestDebouncerStaleTaskIgnored(t *testing.T) {
	var tasks []func()
	sched := schedulerFunc(func(_ time.Duration, fn func()) func() {
		tasks = append(tasks, fn)
		return func() {} // cancellation never takes effect
	})

	calls := 0
	d := NewDebouncer(100*time.Millisecond, sched, func(Reason) { calls++ })
	d.Notify(ReasonRegion)
	d.Notify(ReasonRegion)

	tasks[0]()
	if calls != 0 {
		t.Fatalf("Expected superseded task to be ignored, got %d calls", calls)
	}
	tasks[1]()
	if calls != 1 {
		t.Errorf("Expected latest task to run, got %d calls", calls)
	}
}

func TestDebouncerFlush(t *testing.T) {
	sched := testutil.NewManualScheduler()
	var got Reason
	calls := 0
	d := NewDebouncer(100*time.Millisecond, sched, func(r Reason) {
		calls++
		got = r
	})

	if d.Flush() {
		t.Error("Expected Flush with nothing pending to return false")
	}

	d.Notify(ReasonPriority)
	if !d.Flush() {
		t.Fatal("Expected Flush to run the pending call")
	}
	if calls != 1 || got != ReasonPriority {
		t.Errorf("Expected 1 call with priority, got %d calls with %s", calls, got)
	}

	sched.Advance(time.Second)
	if calls != 1 {
		t.Errorf("Expected flushed timer not to fire again, got %d calls", calls)
	}
}

func TestDebouncerDefaultDuration(t *testing.T) {
	d := NewDebouncer(0, testutil.NewManualScheduler(), func(Reason) {})
	if d.Duration() != DefaultQuietInterval {
		t.Errorf("Expected default duration %v, got %v", DefaultQuietInterval, d.Duration())
	}
}

func TestReasonString(t *testing.T) {
	tests := []struct {
		r    Reason
		want string
	}{
		{0, "none"},
		{ReasonRegion, "region"},
		{ReasonRegion | ReasonDataset, "region|dataset"},
		{ReasonPriority | ReasonBacklog, "priority|backlog"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("Reason(%d).String() = %q, want %q", tt.r, got, tt.want)
		}
	}
}

type schedulerFunc func(time.Duration, func()) func()

func (f schedulerFunc) AfterFunc(d time.Duration, fn func()) func() {
	return f(d, fn)
}
