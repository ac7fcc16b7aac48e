// Package progressui renders download progress on the terminal: one
// schollz bar for a single source, an mpb bar group for several.
package progressui

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/cloudtree/cloudtree/internal/rclone"
)

// SingleBar renders one transfer's progress on stderr. Off-terminal it
// degrades to plain start/finish lines.
type SingleBar struct {
	bar         *progressbar.ProgressBar
	description string
	isTerminal  bool
	total       int64
}

// NewSingleBar creates a bar for one source.
func NewSingleBar(description string) *SingleBar {
	s := &SingleBar{
		description: description,
		isTerminal:  term.IsTerminal(int(os.Stderr.Fd())),
	}
	if !s.isTerminal {
		fmt.Fprintf(os.Stderr, "Downloading %s\n", description)
		return s
	}
	enableWindowsANSI(os.Stderr)
	return s
}

// Update feeds one parsed progress line into the bar. The bar is
// created on the first update and re-created if rclone revises the
// total upward while it scans the source.
func (s *SingleBar) Update(p rclone.Progress) {
	if !s.isTerminal {
		return
	}
	if s.bar == nil || p.BytesTotal > s.total {
		s.total = p.BytesTotal
		s.bar = progressbar.NewOptions64(max64(s.total, 1),
			progressbar.OptionSetDescription(s.description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(50),
			progressbar.OptionThrottle(100),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(os.Stderr, "\n")
			}),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = s.bar.Set64(p.BytesDone)
}

// Finish completes the bar and prints the outcome.
func (s *SingleBar) Finish(err error) {
	if s.bar != nil {
		_ = s.bar.Finish()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if !s.isTerminal {
		fmt.Fprintf(os.Stderr, "Finished %s\n", s.description)
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
