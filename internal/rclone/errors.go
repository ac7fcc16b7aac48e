// Package rclone wraps the rclone executable: process launch, stream
// capture, progress parsing and listing output decoding. It never talks
// to cloud providers itself; rclone owns the protocols.
package rclone

import (
	"errors"
	"fmt"
	"strings"
)

// LaunchError indicates the rclone executable could not be started at
// all: not found on PATH, permission denied, or a spawn failure. It is
// distinct from a process that started and exited nonzero.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// CommandFailedError indicates rclone started and exited with a nonzero
// code. It carries the exit code and the captured stderr tail so the UI
// can show rclone's own diagnosis.
type CommandFailedError struct {
	Args     []string
	ExitCode int
	Stderr   []string // trailing stderr lines, oldest first
}

func (e *CommandFailedError) Error() string {
	detail := strings.TrimSpace(strings.Join(e.Stderr, "\n"))
	if detail == "" {
		return fmt.Sprintf("rclone %s exited with code %d", firstArg(e.Args), e.ExitCode)
	}
	return fmt.Sprintf("rclone %s exited with code %d: %s", firstArg(e.Args), e.ExitCode, detail)
}

// StderrTail returns the captured stderr tail joined with newlines.
func (e *CommandFailedError) StderrTail() string {
	return strings.Join(e.Stderr, "\n")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// ListError wraps a failure to list a remote path, for UI presentation.
type ListError struct {
	Path string
	Err  error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("listing %q failed: %v", e.Path, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// DownloadError wraps a failed folder download, for UI presentation.
type DownloadError struct {
	Source string
	Dest   string
	Err    error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %q to %q failed: %v", e.Source, e.Dest, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// IsLaunchError reports whether err (or anything it wraps) is a
// LaunchError.
func IsLaunchError(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// AsCommandFailed extracts a CommandFailedError from err, if present.
func AsCommandFailed(err error) (*CommandFailedError, bool) {
	var cf *CommandFailedError
	if errors.As(err, &cf) {
		return cf, true
	}
	return nil, false
}
