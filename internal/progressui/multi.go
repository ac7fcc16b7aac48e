package progressui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/cloudtree/cloudtree/internal/rclone"
)

// MultiUI manages one progress bar per concurrent download source.
type MultiUI struct {
	progress   *mpb.Progress
	isTerminal bool
	total      int
}

// SourceBar is the bar of one download source.
type SourceBar struct {
	ui    *MultiUI
	bar   *mpb.Bar
	label string
	index int

	mu         sync.Mutex
	total      int64
	lastBytes  int64
	lastUpdate time.Time
}

// NewMultiUI creates the bar group for the given number of sources.
// Off-terminal the bars are suppressed and only text lines appear.
func NewMultiUI(totalSources int) *MultiUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		enableWindowsANSI(os.Stderr)
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &MultiUI{progress: p, isTerminal: isTerminal, total: totalSources}
}

// AddBar registers a bar for one source, labelled with its remote path.
func (u *MultiUI) AddBar(index int, label string) *SourceBar {
	sb := &SourceBar{
		ui:         u,
		label:      label,
		index:      index,
		lastUpdate: time.Now(),
	}

	if u.isTerminal {
		sb.bar = u.progress.New(0,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("[%d/%d] %s", index, u.total, label), decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(os.Stderr, "Downloading [%d/%d]: %s\n", index, u.total, label)
	}
	return sb
}

// Update feeds one parsed progress line into the bar. EWMA timing needs
// the elapsed interval even when no bytes moved, so every call advances
// the bar clock.
func (b *SourceBar) Update(p rclone.Progress) {
	if b.bar == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.BytesTotal > b.total {
		b.total = p.BytesTotal
		b.bar.SetTotal(b.total, false)
	}

	now := time.Now()
	delta := p.BytesDone - b.lastBytes
	if delta < 0 {
		delta = 0
	}
	b.bar.EwmaIncrBy(int(delta), now.Sub(b.lastUpdate))
	b.lastBytes = p.BytesDone
	b.lastUpdate = now
}

// Complete finishes the bar and prints the outcome above the group.
func (b *SourceBar) Complete(err error) {
	if err == nil {
		if b.bar != nil {
			b.mu.Lock()
			total := b.total
			if total == 0 {
				total = b.lastBytes
			}
			b.mu.Unlock()
			b.bar.SetCurrent(total)
			b.bar.SetTotal(total, true)
		}
		fmt.Fprintf(b.ui.Writer(), "done: %s\n", b.label)
		return
	}
	if b.bar != nil {
		b.bar.Abort(false)
	}
	fmt.Fprintf(b.ui.Writer(), "failed: %s: %v\n", b.label, err)
}

// Wait blocks until every bar has completed or aborted.
func (u *MultiUI) Wait() {
	u.progress.Wait()
}

// Writer returns a writer that prints above the live bars.
func (u *MultiUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// IsTerminal reports whether bars are actually rendered.
func (u *MultiUI) IsTerminal() bool { return u.isTerminal }
