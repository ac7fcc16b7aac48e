package rclone

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Entry is one record from `rclone lsjson`: a file or folder directly
// under the listed path. Immutable once decoded.
type Entry struct {
	Path     string    `json:"Path"`
	Name     string    `json:"Name"`
	Size     int64     `json:"Size"` // -1 for folders
	MimeType string    `json:"MimeType"`
	ModTime  time.Time `json:"ModTime"`
	IsDir    bool      `json:"IsDir"`
}

// Client exposes rclone's listing subcommands over a Runner.
type Client struct {
	runner *Runner
}

// NewClient creates a listing client on top of the given runner.
func NewClient(runner *Runner) *Client {
	return &Client{runner: runner}
}

// Runner returns the underlying process runner, for starting streaming
// copy jobs against the same binary and extra arguments.
func (c *Client) Runner() *Runner { return c.runner }

// ListRemotes returns the configured remote names in the order rclone
// reports them, with the trailing colon stripped.
func (c *Client) ListRemotes(ctx context.Context) ([]string, error) {
	out, err := c.runner.Output(ctx, "listremotes")
	if err != nil {
		return nil, fmt.Errorf("listremotes: %w", err)
	}

	var remotes []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		remotes = append(remotes, strings.TrimSuffix(line, ":"))
	}
	return remotes, nil
}

// ListDir returns the entries directly under remotePath (one level, no
// recursion). A nonzero rclone exit becomes a ListError wrapping the
// CommandFailedError.
func (c *Client) ListDir(ctx context.Context, remotePath string) ([]Entry, error) {
	out, err := c.runner.Output(ctx, "lsjson", remotePath)
	if err != nil {
		return nil, &ListError{Path: remotePath, Err: err}
	}

	var entries []Entry
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, &ListError{Path: remotePath, Err: fmt.Errorf("decoding lsjson output: %w", err)}
	}
	return entries, nil
}

// CopyArgs builds the argument list for a streaming folder download.
// --progress and a fixed --stats cadence make the stdout stream parse
// predictably; --stats-one-line keeps each refresh to a single line.
func CopyArgs(source, dest string, statsInterval time.Duration) []string {
	return []string{
		"copy", source, dest,
		"--progress",
		"--stats", statsInterval.String(),
		"--stats-one-line",
	}
}
