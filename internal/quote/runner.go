package quote

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrShuttingDown is returned by Start once Shutdown has been called.
var ErrShuttingDown = errors.New("runner is shutting down")

// Pipeline is what a Runner executes. *Assembler implements it.
type Pipeline interface {
	Run(ctx context.Context, t Trigger) Outcome
}

// Runner starts pipelines in the background and tracks them by request ID so
// they can be cancelled.
type Runner struct {
	pipeline Pipeline
	onDone   func(Outcome)

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// OnDone registers a callback invoked with every finished run's outcome.
func OnDone(fn func(Outcome)) RunnerOption {
	return func(r *Runner) { r.onDone = fn }
}

func NewRunner(p Pipeline, opts ...RunnerOption) *Runner {
	r := &Runner{pipeline: p, running: map[uuid.UUID]context.CancelFunc{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs t in a new goroutine and returns its request ID immediately.
// The run is detached from ctx's cancellation but keeps its values.
func (r *Runner) Start(ctx context.Context, t Trigger) (uuid.UUID, error) {
	if t.RequestID == uuid.Nil {
		t.RequestID = uuid.New()
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return uuid.Nil, ErrShuttingDown
	}
	r.running[t.RequestID] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer r.forget(t.RequestID)
		defer cancel()

		out := r.pipeline.Run(runCtx, t)
		if r.onDone != nil {
			r.onDone(out)
		}
	}()
	return t.RequestID, nil
}

// Cancel stops the run for id. It reports false if no such run is active.
func (r *Runner) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	cancel, ok := r.running[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	slog.Info("cancelling pipeline", "request_id", id)
	cancel()
	return true
}

// Active reports whether a run for id is still in flight.
func (r *Runner) Active(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[id]
	return ok
}

// Shutdown refuses new runs and waits for active ones. When ctx expires first
// the remaining runs are cancelled and Shutdown waits for them to unwind.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
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
		r.mu.Lock()
		for _, cancel := range r.running {
			cancel()
		}
		r.mu.Unlock()
		<-done
		return ctx.Err()
	}
}

func (r *Runner) forget(id uuid.UUID) {
	r.mu.Lock()
	delete(r.running, id)
	r.mu.Unlock()
}
