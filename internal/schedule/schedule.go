// Package schedule provides cancellable one-shot and repeating tasks.
// This allows swapping the wall clock for a manual one in tests without
// changing game logic.
package schedule

import (
	"sync"
	"time"
)

// Task is a scheduled callback. Stop is idempotent and safe to call on a
// task that already fired.
type Task interface {
	Stop()
}

// Scheduler runs callbacks later. Callbacks run on the scheduler's own
// goroutine; callers that own state must hand them back to their loop.
type Scheduler interface {
	// After runs fn once after d.
	After(d time.Duration, fn func()) Task

	// Every runs fn every d until the task is stopped.
	Every(d time.Duration, fn func()) Task

	// Now returns the scheduler's current time.
	Now() time.Time
}

// Clock is the wall-clock Scheduler.
type Clock struct{}

// NewClock returns the wall-clock Scheduler.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns time.Now.
func (Clock) Now() time.Time {
	return time.Now()
}

// After runs fn once after d.
func (Clock) After(d time.Duration, fn func()) Task {
	return &timerTask{t: time.AfterFunc(d, fn)}
}

// Every runs fn every d on a dedicated goroutine until stopped.
func (Clock) Every(d time.Duration, fn func()) Task {
	task := &tickerTask{
		ticker: time.NewTicker(d),
		stopCh: make(chan struct{}),
	}
	go task.loop(fn)
	return task
}

type timerTask struct {
	t *time.Timer
}

func (t *timerTask) Stop() {
	t.t.Stop()
}

type tickerTask struct {
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
}

func (t *tickerTask) loop(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-t.ticker.C:
			// A tick and a stop can be ready together; stop wins.
			select {
			case <-t.stopCh:
				return
			default:
			}
			fn()
		}
	}
}

func (t *tickerTask) Stop() {
	t.once.Do(func() { close(t.stopCh) })
}
