// Package scheduler provides the clock abstraction injected into periodic
// operators: a task queue that runs functions at a timestamp or on a fixed
// period. Operators depend only on the TaskQueue interface, so tests can
// substitute a manually advanced queue.
package scheduler

import (
	"sync"
	"time"
)

// CancelFunc cancels a scheduled task. Idempotent.
type CancelFunc func()

// Task runs on the queue. The supplied cancel handle cancels the task's own
// schedule, letting repeating tasks stop themselves.
type Task func(cancel CancelFunc)

// TaskQueue schedules functions against a clock.
type TaskQueue interface {
	// ScheduleAt runs fn once at the given timestamp.
	ScheduleAt(at time.Time, fn Task) CancelFunc
	// ScheduleRepeating runs fn every period until cancelled.
	ScheduleRepeating(period time.Duration, fn Task) CancelFunc
}

// TimerQueue is the wall-clock TaskQueue backed by runtime timers.
type TimerQueue struct{}

// NewTimerQueue creates a wall-clock task queue.
func NewTimerQueue() *TimerQueue {
	return &TimerQueue{}
}

// Default is the package-wide wall-clock queue used when an operator is not
// given one explicitly.
var Default TaskQueue = NewTimerQueue()

// ScheduleAt runs fn once when the wall clock reaches at.
func (q *TimerQueue) ScheduleAt(at time.Time, fn Task) CancelFunc {
	var (
		mu        sync.Mutex
		timer     *time.Timer
		cancelled bool
	)
	cancel := func() {
		mu.Lock()
		defer mu.Unlock()
		cancelled = true
		if timer != nil {
			timer.Stop()
		}
	}
	mu.Lock()
	timer = time.AfterFunc(time.Until(at), func() {
		mu.Lock()
		dead := cancelled
		mu.Unlock()
		if !dead {
			fn(cancel)
		}
	})
	mu.Unlock()
	return cancel
}

// ScheduleRepeating runs fn every period until cancelled, either externally
// or by the task itself through its cancel handle.
func (q *TimerQueue) ScheduleRepeating(period time.Duration, fn Task) CancelFunc {
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn(cancel)
			}
		}
	}()
	return cancel
}

// fakeTask is a manually scheduled task inside a FakeQueue.
type fakeTask struct {
	at        time.Time
	period    time.Duration
	fn        Task
	cancelled bool
}

// FakeQueue is a deterministic TaskQueue for tests: time only moves when
// Advance is called.
type FakeQueue struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*fakeTask
}

// NewFakeQueue creates a fake queue positioned at now.
func NewFakeQueue(now time.Time) *FakeQueue {
	return &FakeQueue{now: now}
}

// Now returns the queue's current time.
func (q *FakeQueue) Now() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.now
}

// ScheduleAt registers fn to run when the fake clock reaches at.
func (q *FakeQueue) ScheduleAt(at time.Time, fn Task) CancelFunc {
	t := &fakeTask{at: at, fn: fn}
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		t.cancelled = true
		q.mu.Unlock()
	}
}

// ScheduleRepeating registers fn to run every period of fake time.
func (q *FakeQueue) ScheduleRepeating(period time.Duration, fn Task) CancelFunc {
	q.mu.Lock()
	t := &fakeTask{at: q.now.Add(period), period: period, fn: fn}
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		t.cancelled = true
		q.mu.Unlock()
	}
}

// Advance moves the fake clock forward by d, running every due task in
// timestamp order. Repeating tasks fire once per elapsed period.
func (q *FakeQueue) Advance(d time.Duration) {
	q.mu.Lock()
	deadline := q.now.Add(d)
	for {
		var next *fakeTask
		for _, t := range q.tasks {
			if t.cancelled || t.at.After(deadline) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		q.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
		} else {
			next.cancelled = true
		}
		fn := next.fn
		target := next
		cancel := func() {
			q.mu.Lock()
			target.cancelled = true
			q.mu.Unlock()
		}
		q.mu.Unlock()
		fn(cancel)
		q.mu.Lock()
	}
	q.now = deadline
	q.mu.Unlock()
}
