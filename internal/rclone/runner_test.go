//go:build !windows

package rclone

import (
	"context"
	"strings"
	"testing"
	"time"
)

// shRunner returns a Runner that executes /bin/sh so tests control the
// subprocess behavior without needing rclone installed.
func shRunner(t *testing.T) *Runner {
	t.Helper()
	return NewRunner("sh", nil)
}

func TestRunnerStreamsStdoutAndStderr(t *testing.T) {
	r := shRunner(t)
	job, err := r.Start(context.Background(), "-c", "echo out1; echo err1 >&2; echo out2")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var stdout, stderr []string
	outDone := make(chan struct{})
	go func() {
		for line := range job.Stdout {
			stdout = append(stdout, line)
		}
		close(outDone)
	}()
	for line := range job.Stderr {
		stderr = append(stderr, line)
	}
	<-outDone

	code, err := job.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if len(stdout) != 2 || stdout[0] != "out1" || stdout[1] != "out2" {
		t.Errorf("stdout = %v", stdout)
	}
	if len(stderr) != 1 || stderr[0] != "err1" {
		t.Errorf("stderr = %v", stderr)
	}
}

func TestRunnerLaunchErrorForMissingBinary(t *testing.T) {
	r := NewRunner("definitely-not-a-real-binary-7f3a", nil)
	_, err := r.Start(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected launch error")
	}
	if !IsLaunchError(err) {
		t.Errorf("error should be a LaunchError, got %T: %v", err, err)
	}
}

func TestRunnerNonzeroExitIsNotLaunchError(t *testing.T) {
	r := shRunner(t)
	job, err := r.Start(context.Background(), "-c", "exit 3")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(job)

	code, _ := job.Wait()
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestRunnerOutputCommandFailedCarriesStderrTail(t *testing.T) {
	r := shRunner(t)
	_, err := r.Output(context.Background(), "-c", "echo 'directory not found' >&2; exit 1")
	if err == nil {
		t.Fatal("expected error for nonzero exit")
	}
	if IsLaunchError(err) {
		t.Fatal("nonzero exit must not surface as LaunchError")
	}
	cf, ok := AsCommandFailed(err)
	if !ok {
		t.Fatalf("expected CommandFailedError, got %T: %v", err, err)
	}
	if cf.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", cf.ExitCode)
	}
	if !strings.Contains(cf.StderrTail(), "directory not found") {
		t.Errorf("stderr tail missing diagnostic: %q", cf.StderrTail())
	}
}

func TestRunnerKillTerminatesProcess(t *testing.T) {
	r := shRunner(t)
	job, err := r.Start(context.Background(), "-c", "sleep 30")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	go drain(job)

	job.Kill()
	job.Kill() // idempotent

	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("process did not exit after Kill")
	}
	if job.ExitCode() == 0 {
		t.Error("killed process should not report exit code 0")
	}
}

func TestScanLinesCRSplitsCarriageReturns(t *testing.T) {
	data := []byte("partial\rsecond line\r\nthird\n")
	var tokens []string
	rest := data
	for {
		adv, tok, err := scanLinesCR(rest, false)
		if err != nil {
			t.Fatal(err)
		}
		if adv == 0 {
			break
		}
		tokens = append(tokens, string(tok))
		rest = rest[adv:]
	}
	want := []string{"partial", "second line", "third"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestTailLines(t *testing.T) {
	got := TailLines("a\nb\nc\nd\n", 2)
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Errorf("TailLines = %v, want [c d]", got)
	}
	if TailLines("", 5) != nil {
		t.Error("empty input should return nil")
	}
}

func drain(j *Job) {
	go func() {
		for range j.Stderr {
		}
	}()
	for range j.Stdout {
	}
}
