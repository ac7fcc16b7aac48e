// Package worker runs one rclone job to completion and reports its
// lifecycle and progress on the event bus.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudtree/cloudtree/internal/constants"
	"github.com/cloudtree/cloudtree/internal/events"
	"github.com/cloudtree/cloudtree/internal/logging"
	"github.com/cloudtree/cloudtree/internal/rclone"
)

// State represents the lifecycle of a worker. A worker is one-shot:
// it moves from Idle through Running to exactly one terminal state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Worker wraps a single rclone invocation. Progress parsed from stdout
// and diagnostics from stderr are published on the bus; a cancel request
// always ends in Cancelled even when the process manages a clean exit
// underneath it, and any output observed after the request is discarded.
type Worker struct {
	id     string
	runner *rclone.Runner
	bus    *events.EventBus
	logger *logging.Logger

	mu         sync.Mutex
	state      State
	cancelled  bool
	cancel     context.CancelFunc
	job        *rclone.Job
	args       []string
	stderrTail []string
	exitCode   int
	err        error
	progress   rclone.Progress
	done       chan struct{}
}

// New creates an idle worker with the given job id.
func New(id string, runner *rclone.Runner, bus *events.EventBus, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return &Worker{
		id:       id,
		runner:   runner,
		bus:      bus,
		logger:   logger,
		state:    StateIdle,
		exitCode: -1,
		done:     make(chan struct{}),
	}
}

// ID returns the worker's job id.
func (w *Worker) ID() string { return w.id }

// Start launches the job. It fails if the worker is not idle, and a
// spawn failure moves the worker straight to Failed with a LaunchError.
func (w *Worker) Start(ctx context.Context, args ...string) error {
	w.mu.Lock()
	if w.state != StateIdle {
		state := w.state
		w.mu.Unlock()
		return fmt.Errorf("worker %s is %s, not idle", w.id, state)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.args = append([]string(nil), args...)

	job, err := w.runner.Start(runCtx, args...)
	if err != nil {
		w.state = StateFailed
		w.err = err
		cancel()
		close(w.done)
		w.mu.Unlock()
		w.bus.PublishJobState(w.id, StateIdle.String(), StateFailed.String(), -1, err)
		return err
	}

	w.job = job
	w.state = StateRunning
	w.mu.Unlock()

	w.bus.PublishJobState(w.id, StateIdle.String(), StateRunning.String(), -1, nil)
	go w.run(job)
	return nil
}

// run drains both streams, waits for the exit, and records the outcome.
func (w *Worker) run(job *rclone.Job) {
	var pumps sync.WaitGroup
	pumps.Add(2)

	go func() {
		defer pumps.Done()
		for line := range job.Stdout {
			if w.isCancelled() {
				continue
			}
			p, ok := rclone.ParseProgressLine(line)
			if !ok {
				w.logger.Debug().Str("job", w.id).Str("line", line).Msg("unrecognized output line")
				continue
			}
			w.mu.Lock()
			w.progress = p
			w.mu.Unlock()
			w.bus.Publish(&events.ProgressEvent{
				BaseEvent:  events.BaseEvent{EventType: events.EventProgress, Time: time.Now()},
				JobID:      w.id,
				BytesDone:  p.BytesDone,
				BytesTotal: p.BytesTotal,
				Percent:    p.Percent,
				Rate:       p.Rate,
				ETA:        p.ETA,
				HasETA:     p.HasETA,
				RawLine:    p.RawLine,
			})
		}
	}()

	go func() {
		defer pumps.Done()
		for line := range job.Stderr {
			if w.isCancelled() {
				continue
			}
			w.appendStderr(line)
			w.bus.PublishDiagnostic(w.id, line)
		}
	}()

	pumps.Wait()
	code, _ := job.Wait()

	w.mu.Lock()
	w.exitCode = code
	var next State
	switch {
	case w.cancelled:
		// Cancel wins even over a clean exit that raced the kill.
		next = StateCancelled
		w.err = context.Canceled
	case code == 0:
		next = StateCompleted
		w.err = nil
	default:
		next = StateFailed
		w.err = &rclone.CommandFailedError{
			Args:     w.args,
			ExitCode: code,
			Stderr:   append([]string(nil), w.stderrTail...),
		}
	}
	w.state = next
	err := w.err
	w.cancel()
	w.mu.Unlock()

	close(w.done)
	w.bus.PublishJobState(w.id, StateRunning.String(), next.String(), code, err)
	w.logger.Debug().Str("job", w.id).Str("state", next.String()).Int("exit", code).Msg("job finished")
}

// Cancel requests termination. It is idempotent and a no-op once the
// worker has reached a terminal state. Cancelling an idle worker moves
// it directly to Cancelled so it can never be started.
func (w *Worker) Cancel() {
	w.mu.Lock()
	if w.cancelled || w.state.Terminal() {
		w.mu.Unlock()
		return
	}
	w.cancelled = true

	if w.state == StateIdle {
		w.state = StateCancelled
		w.err = context.Canceled
		w.mu.Unlock()
		close(w.done)
		w.bus.PublishJobState(w.id, StateIdle.String(), StateCancelled.String(), -1, context.Canceled)
		return
	}

	job := w.job
	w.mu.Unlock()
	job.Kill()
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the terminal error, nil for Completed.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// ExitCode returns the process exit code; -1 until the job ends or when
// the process died to a signal.
func (w *Worker) ExitCode() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exitCode
}

// Progress returns the most recent parsed progress update.
func (w *Worker) Progress() rclone.Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.progress
}

// StderrTail returns the last diagnostic lines seen before any cancel.
func (w *Worker) StderrTail() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.stderrTail...)
}

// Done returns a channel closed when the worker reaches a terminal state.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Wait blocks until the worker is terminal and returns its state.
func (w *Worker) Wait() State {
	<-w.done
	return w.State()
}

func (w *Worker) isCancelled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancelled
}

func (w *Worker) appendStderr(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stderrTail = append(w.stderrTail, line)
	if len(w.stderrTail) > constants.StderrTailLines {
		w.stderrTail = w.stderrTail[len(w.stderrTail)-constants.StderrTailLines:]
	}
}
