// Package testutil provides deterministic test doubles for the engine.
package testutil

import (
	"sort"
	"time"
)

// ManualScheduler is a fake clock for debounce tests. Scheduled functions
// run only when Advance moves the clock past their due time, on the
// goroutine calling Advance.
type ManualScheduler struct {
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	due       time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc schedules fn to run delay after the current fake time.
func (s *ManualScheduler) AfterFunc(delay time.Duration, fn func()) func() {
	s.seq++
	task := &manualTask{due: s.now + delay, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, task)
	return func() { task.cancelled = true }
}

// Advance moves the clock forward by d, running every task that becomes due
// in order of due time. Tasks scheduled by a running task are run too if
// they fall due within the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		task := s.nextDue(target)
		if task == nil {
			break
		}
		s.now = task.due
		task.fn()
	}
	s.now = target
}

// Now returns the current fake time.
func (s *ManualScheduler) Now() time.Duration {
	return s.now
}

// Pending returns the number of scheduled, uncancelled tasks.
func (s *ManualScheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// nextDue removes and returns the earliest live task due at or before
// target.
func (s *ManualScheduler) nextDue(target time.Duration) *manualTask {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	s.tasks = live

	if len(s.tasks) == 0 {
		return nil
	}
	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].due != s.tasks[j].due {
			return s.tasks[i].due < s.tasks[j].due
		}
		return s.tasks[i].seq < s.tasks[j].seq
	})

	task := s.tasks[0]
	if task.due > target {
		return nil
	}
	s.tasks = s.tasks[1:]
	return task
}
