// Package tasks provides a bounded background dispatcher for fire-and-forget
// side effects: activity records, report recomputes, and other work that must
// never block or fail the request that triggered it.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// enqueueWait is how long Enqueue blocks on a full queue before dropping the
// task. Side effects are attempted, not guaranteed.
const enqueueWait = 100 * time.Millisecond

// Task is one unit of background work. The context is the dispatcher's
// lifetime context, canceled on shutdown after the drain grace period.
type Task func(ctx context.Context)

// Dispatcher runs tasks on a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	queue   chan Task
	logger  *slog.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	closing sync.Once
}

// NewDispatcher starts a dispatcher with the given worker count and queue
// capacity.
func NewDispatcher(workers, capacity int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		queue:  make(chan Task, capacity),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue submits a task and reports whether it was accepted. If the queue
// stays full past a short wait the task is dropped and logged; callers never
// block meaningfully and never see an error, but ones holding state keyed on
// the task running (coalescing flags, in-flight markers) must roll it back
// on a false return.
func (d *Dispatcher) Enqueue(name string, task Task) bool {
	select {
	case d.queue <- task:
		return true
	default:
	}

	// Queue full; give it a moment before giving up.
	timer := time.NewTimer(enqueueWait)
	defer timer.Stop()

	select {
	case d.queue <- task:
		return true
	case <-timer.C:
		if d.logger != nil {
			d.logger.Warn("Background task dropped, queue full", "task", name)
		}
	case <-d.ctx.Done():
		if d.logger != nil {
			d.logger.Warn("Background task dropped, dispatcher closed", "task", name)
		}
	}
	return false
}

// Shutdown stops accepting work and drains the queue. Tasks still queued
// when the context expires are abandoned.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.closing.Do(func() {
		close(d.queue)

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			if d.logger != nil {
				d.logger.Warn("Dispatcher shutdown timed out, abandoning queued tasks")
			}
		}
		d.cancel()
	})
}

// worker drains the queue until it is closed and empty.
func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for task := range d.queue {
		d.runTask(task)
	}
}

// runTask executes one task, converting panics into logs so a bad side
// effect can't take a worker down.
func (d *Dispatcher) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil && d.logger != nil {
			d.logger.Error("Background task panicked", "panic", r)
		}
	}()
	task(d.ctx)
}
