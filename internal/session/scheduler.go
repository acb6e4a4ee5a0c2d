package session

import (
	"sync"
	"time"
)

// Task is a handle to scheduled work. Stop is safe to call more than once.
type Task interface {
	Stop()
}

type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
	Every(d time.Duration, fn func()) Task
}

type timeScheduler struct{}

// NewTimeScheduler returns a Scheduler backed by the runtime timers.
func NewTimeScheduler() Scheduler {
	return timeScheduler{}
}

type timerTask struct {
	timer *time.Timer
}

func (t timerTask) Stop() {
	t.timer.Stop()
}

func (timeScheduler) AfterFunc(d time.Duration, fn func()) Task {
	if d < 0 {
		d = 0
	}
	return timerTask{timer: time.AfterFunc(d, fn)}
}

type tickerTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTask) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

func (timeScheduler) Every(d time.Duration, fn func()) Task {
	task := &tickerTask{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-task.done:
				return
			case <-task.ticker.C:
				fn()
			}
		}
	}()
	return task
}
