//go:build !windows

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudtree/cloudtree/internal/events"
	"github.com/cloudtree/cloudtree/internal/rclone"
)

func newTestWorker(t *testing.T, id string) (*Worker, <-chan events.Event) {
	t.Helper()
	bus := events.NewEventBus(128)
	t.Cleanup(bus.Close)
	sub := bus.SubscribeAll()
	return New(id, rclone.NewRunner("sh", nil), bus, nil), sub
}

func waitTerminal(t *testing.T, w *Worker) State {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("worker %s did not reach a terminal state", w.ID())
	}
	return w.State()
}

func TestWorkerCompletesAndPublishesProgress(t *testing.T) {
	w, sub := newTestWorker(t, "job-ok")

	script := `printf 'Transferred: 1 KiB / 2 KiB, 50%%, 512 B/s, ETA 2s\n'`
	if err := w.Start(context.Background(), "-c", script); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := waitTerminal(t, w); got != StateCompleted {
		t.Fatalf("state = %v, want completed (err: %v)", got, w.Err())
	}
	if w.Err() != nil {
		t.Errorf("Err = %v, want nil", w.Err())
	}
	if w.ExitCode() != 0 {
		t.Errorf("ExitCode = %d, want 0", w.ExitCode())
	}
	if p := w.Progress(); p.BytesDone != 1024 || p.BytesTotal != 2048 {
		t.Errorf("progress = %+v, want 1024/2048", p)
	}

	var sawProgress, sawRunning, sawCompleted bool
	deadline := time.After(5 * time.Second)
	for !(sawProgress && sawRunning && sawCompleted) {
		select {
		case ev := <-sub:
			switch e := ev.(type) {
			case *events.ProgressEvent:
				sawProgress = true
			case *events.JobStateEvent:
				if e.NewState == StateRunning.String() {
					sawRunning = true
				}
				if e.NewState == StateCompleted.String() {
					sawCompleted = true
				}
			}
		case <-deadline:
			t.Fatalf("missing events: progress=%v running=%v completed=%v",
				sawProgress, sawRunning, sawCompleted)
		}
	}
}

func TestWorkerNonzeroExitIsFailedWithStderrTail(t *testing.T) {
	w, _ := newTestWorker(t, "job-fail")

	if err := w.Start(context.Background(), "-c", `echo 'quota exceeded' >&2; exit 3`); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := waitTerminal(t, w); got != StateFailed {
		t.Fatalf("state = %v, want failed", got)
	}

	var cf *rclone.CommandFailedError
	if !errors.As(w.Err(), &cf) {
		t.Fatalf("Err = %T, want CommandFailedError", w.Err())
	}
	if cf.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", cf.ExitCode)
	}
	tail := w.StderrTail()
	if len(tail) != 1 || tail[0] != "quota exceeded" {
		t.Errorf("stderr tail = %v, want [quota exceeded]", tail)
	}
}

func TestWorkerSpawnFailureIsLaunchError(t *testing.T) {
	bus := events.NewEventBus(16)
	defer bus.Close()
	w := New("job-nobin", rclone.NewRunner("/nonexistent/rclone-test-binary", nil), bus, nil)

	err := w.Start(context.Background(), "version")
	if err == nil {
		t.Fatal("expected spawn failure")
	}
	if !rclone.IsLaunchError(err) {
		t.Errorf("expected LaunchError, got %T: %v", err, err)
	}
	if w.State() != StateFailed {
		t.Errorf("state = %v, want failed", w.State())
	}
}

func TestWorkerCancelYieldsCancelled(t *testing.T) {
	w, _ := newTestWorker(t, "job-cancel")

	if err := w.Start(context.Background(), "-c", "sleep 30"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	w.Cancel()
	w.Cancel() // idempotent

	if got := waitTerminal(t, w); got != StateCancelled {
		t.Fatalf("state = %v, want cancelled", got)
	}
	if !errors.Is(w.Err(), context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", w.Err())
	}
}

func TestWorkerCancelWinsOverCleanExit(t *testing.T) {
	w, _ := newTestWorker(t, "job-race")

	// The script turns the terminate signal into a clean exit; the
	// cancel request must still decide the terminal state.
	if err := w.Start(context.Background(), "-c", `trap 'exit 0' TERM; sleep 30`); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	w.Cancel()

	if got := waitTerminal(t, w); got != StateCancelled {
		t.Fatalf("state = %v, want cancelled even on exit 0", got)
	}
}

func TestWorkerCancelBeforeStart(t *testing.T) {
	w, _ := newTestWorker(t, "job-early")

	w.Cancel()
	if w.State() != StateCancelled {
		t.Fatalf("state = %v, want cancelled", w.State())
	}
	if err := w.Start(context.Background(), "-c", "true"); err == nil {
		t.Error("Start after cancel should fail")
	}
}

func TestWorkerIsOneShot(t *testing.T) {
	w, _ := newTestWorker(t, "job-oneshot")

	if err := w.Start(context.Background(), "-c", "true"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(context.Background(), "-c", "true"); err == nil {
		t.Error("second Start should fail")
	}
	waitTerminal(t, w)
}
