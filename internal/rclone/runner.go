package rclone

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudtree/cloudtree/internal/constants"
	"github.com/cloudtree/cloudtree/internal/logging"
)

// Runner launches rclone subprocesses. It is safe for concurrent use;
// each Start call produces an independent Job.
type Runner struct {
	binary    string
	extraArgs []string
	logger    *logging.Logger
}

// NewRunner creates a runner for the given executable. An empty binary
// falls back to "rclone" resolved on PATH.
func NewRunner(binary string, logger *logging.Logger) *Runner {
	if binary == "" {
		binary = constants.RcloneBinary
	}
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return &Runner{binary: binary, logger: logger}
}

// SetExtraArgs appends user-configured arguments to every invocation
// (e.g. --config for a non-default rclone config file).
func (r *Runner) SetExtraArgs(args []string) {
	r.extraArgs = append([]string(nil), args...)
}

// Binary returns the configured executable path or name.
func (r *Runner) Binary() string { return r.binary }

// Job is a handle to one running rclone process. Stdout and Stderr are
// finite line streams that close when the process exits and the pumps
// drain. Exactly one consumer should range over each.
type Job struct {
	Stdout <-chan string
	Stderr <-chan string

	cmd  *exec.Cmd
	eg   *errgroup.Group
	done chan struct{}

	mu       sync.Mutex
	killed   bool
	exitCode int
	waitErr  error
}

// Start launches the binary with the given arguments. Stdout and stderr
// are consumed on background goroutines and delivered line-by-line on
// the Job's channels. A spawn failure returns a LaunchError; a nonzero
// exit is reported later by Wait, not here.
func (r *Runner) Start(ctx context.Context, args ...string) (*Job, error) {
	full := append(append([]string(nil), args...), r.extraArgs...)

	cmd := exec.CommandContext(ctx, r.binary, full...)
	setProcAttrs(cmd)
	// CommandContext's default kill only signals the direct child; route
	// context cancellation through the process-group kill instead.
	cmd.Cancel = func() error { return terminateProcess(cmd) }

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &LaunchError{Binary: r.binary, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &LaunchError{Binary: r.binary, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Binary: r.binary, Err: err}
	}

	r.logger.Debug().Str("binary", r.binary).Strs("args", full).
		Int("pid", cmd.Process.Pid).Msg("subprocess started")

	outCh := make(chan string, constants.LineBufferSize)
	errCh := make(chan string, constants.LineBufferSize)

	job := &Job{
		Stdout:   outCh,
		Stderr:   errCh,
		cmd:      cmd,
		done:     make(chan struct{}),
		exitCode: -1,
	}

	eg := &errgroup.Group{}
	eg.Go(func() error { return pumpLines(stdout, outCh) })
	eg.Go(func() error { return pumpLines(stderr, errCh) })
	job.eg = eg

	go job.reap()

	return job, nil
}

// reap waits for the pumps and the process, then records the outcome.
func (j *Job) reap() {
	pumpErr := j.eg.Wait()
	err := j.cmd.Wait()

	j.mu.Lock()
	if err == nil {
		j.exitCode = 0
	} else if ee, ok := err.(*exec.ExitError); ok {
		j.exitCode = ee.ExitCode()
	}
	if err == nil {
		err = pumpErr
	}
	j.waitErr = err
	j.mu.Unlock()

	close(j.done)
}

// Wait blocks until the process exits and both streams are drained.
// It returns the exit code; -1 means the process was killed by a signal
// before reporting one.
func (j *Job) Wait() (int, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exitCode, j.waitErr
}

// Done returns a channel closed when the process has exited.
func (j *Job) Done() <-chan struct{} { return j.done }

// ExitCode returns the recorded exit code; only meaningful after Done.
func (j *Job) ExitCode() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exitCode
}

// Kill terminates the process and its children. The first call sends a
// graceful terminate; if the process is still alive after the grace
// period it is killed outright. Kill is idempotent.
func (j *Job) Kill() {
	j.mu.Lock()
	if j.killed {
		j.mu.Unlock()
		return
	}
	j.killed = true
	j.mu.Unlock()

	select {
	case <-j.done:
		return
	default:
	}

	if err := terminateProcess(j.cmd); err != nil {
		j.forceKill()
		return
	}

	go func() {
		select {
		case <-j.done:
		case <-time.After(constants.KillGracePeriod):
			j.forceKill()
		}
	}()
}

func (j *Job) forceKill() {
	if j.cmd.Process != nil {
		_ = killProcessGroup(j.cmd)
	}
}

// Output runs the binary to completion and returns its stdout. A spawn
// failure is a LaunchError; a nonzero exit is a CommandFailedError
// carrying the stderr tail.
func (r *Runner) Output(ctx context.Context, args ...string) ([]byte, error) {
	full := append(append([]string(nil), args...), r.extraArgs...)

	cmd := exec.CommandContext(ctx, r.binary, full...)
	setProcAttrs(cmd)
	cmd.Cancel = func() error { return terminateProcess(cmd) }

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Binary: r.binary, Err: err}
	}

	if err := cmd.Wait(); err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, &CommandFailedError{
				Args:     full,
				ExitCode: ee.ExitCode(),
				Stderr:   TailLines(stderr.String(), constants.StderrTailLines),
			}
		}
		return nil, fmt.Errorf("waiting for %s: %w", r.binary, err)
	}

	return stdout.Bytes(), nil
}

// pumpLines copies a stream to a channel line by line and closes the
// channel at EOF. Lines are split on both \n and \r so rclone's
// carriage-return progress refreshes arrive as individual lines.
func pumpLines(rd io.Reader, out chan<- string) error {
	defer close(out)

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLinesCR)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		out <- line
	}
	return scanner.Err()
}

// scanLinesCR is bufio.ScanLines extended to treat a bare carriage
// return as a line terminator. Partial lines stay buffered until a
// terminator arrives.
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		// Swallow \r\n as one terminator.
		if data[i] == '\r' && advance < len(data) && data[advance] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// TailLines returns up to n trailing non-empty lines of s, oldest first.
func TailLines(s string, n int) []string {
	if s == "" || n <= 0 {
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader([]byte(s)))
	for scanner.Scan() {
		if t := scanner.Text(); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
