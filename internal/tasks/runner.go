package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Task is a named unit of background work. Failures are logged by the
// runner and never surfaced to the code that submitted the task.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes submitted tasks on a fixed pool of worker goroutines.
// It uses a buffered Go channel for distribution and is safe for
// concurrent use. This implementation is suitable for single-instance
// deployments; for multi-instance deployments, migrate to Cloud Tasks
// or Pub/Sub.
type Runner struct {
	taskChan  chan Task
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	log       zerolog.Logger
	closed    bool
}

// NewRunner creates a runner with the given channel buffer size and
// starts workerCount worker goroutines.
func NewRunner(bufferSize, workerCount int, log zerolog.Logger) *Runner {
	r := &Runner{
		taskChan:  make(chan Task, bufferSize),
		closeChan: make(chan struct{}),
		log:       log,
	}
	for i := 0; i < workerCount; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Submit enqueues a task for asynchronous execution. It never blocks:
// when the buffer is full or the runner is stopped, the task is dropped
// and the drop is logged. Background work here is best-effort; the
// submitting request must not stall on it.
func (r *Runner) Submit(task Task) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.log.Warn().Str("task", task.Name).Msg("runner stopped, dropping task")
		return
	}

	select {
	case r.taskChan <- task:
	default:
		r.log.Warn().Str("task", task.Name).Msg("task buffer full, dropping task")
	}
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.closeChan:
			return
		case task := <-r.taskChan:
			r.runTask(task)
		}
	}
}

func (r *Runner) runTask(task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("task", task.Name).Interface("panic", rec).Msg("background task panicked")
		}
	}()

	if err := task.Run(context.Background()); err != nil {
		r.log.Error().Err(err).Str("task", task.Name).Msg("background task failed")
		return
	}
	r.log.Debug().Str("task", task.Name).Msg("background task completed")
}

// Stop prevents further submissions and waits for in-flight tasks to
// complete, or until ctx expires.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.closeChan)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Stop: %w", ctx.Err())
	}
}
