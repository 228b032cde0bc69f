package sched

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs fire-and-forget callbacks off the caller's goroutine.
type Scheduler interface {
	RunAfterDelay(fn func(), d time.Duration)
	RunAsync(fn func())
}

// Clock supplies the current instant. Swapped for Manual in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Worker is a single background goroutine draining a FIFO of callbacks.
// Delayed callbacks are queued onto the same FIFO when their timer fires,
// so every callback runs on the worker and in submission order.
type Worker struct {
	mu     sync.Mutex
	queue  []func()
	timers map[*time.Timer]struct{}
	closed bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	log  *zap.Logger
}

func NewWorker(log *zap.Logger) *Worker {
	w := &Worker{
		timers: make(map[*time.Timer]struct{}),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		log:    log,
	}
	go w.loop()
	return w
}

// RunAsync queues fn. Never blocks the caller.
func (w *Worker) RunAsync(fn func()) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn("scheduler closed, dropping async task")
		return
	}
	w.queue = append(w.queue, fn)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// RunAfterDelay queues fn once d has elapsed. Timers still pending at Close are dropped.
func (w *Worker) RunAfterDelay(fn func(), d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Warn("scheduler closed, dropping delayed task", zap.Duration("delay", d))
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		w.mu.Lock()
		delete(w.timers, t)
		w.mu.Unlock()
		w.RunAsync(fn)
	})
	w.timers[t] = struct{}{}
}

// Pending returns the number of queued async tasks and armed timers.
func (w *Worker) Pending() (queued, timers int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue), len(w.timers)
}

// Close stops pending timers and waits for queued async work to finish.
func (w *Worker) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for t := range w.timers {
		t.Stop()
	}
	w.timers = nil
	w.mu.Unlock()

	close(w.stop)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *Worker) drain() {
	for {
		w.mu.Lock()
		batch := w.queue
		w.queue = nil
		w.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			w.run(fn)
		}
	}
}

func (w *Worker) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("scheduled task panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
