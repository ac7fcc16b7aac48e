package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloudtree/cloudtree/internal/events"
	"github.com/cloudtree/cloudtree/internal/tree"
	"github.com/cloudtree/cloudtree/internal/worker"
)

type remotesMsg struct {
	remotes []string
	err     error
}

type childrenMsg struct {
	id  tree.NodeID
	err error
}

type busMsg struct {
	event events.Event
}

type tickMsg time.Time

type splashDoneMsg struct{}

// loadRemotesCmd fetches the configured remotes off the event loop.
func (m *Model) loadRemotesCmd() tea.Cmd {
	return func() tea.Msg {
		remotes, err := m.client.ListRemotes(m.ctx)
		return remotesMsg{remotes: remotes, err: err}
	}
}

// expandCmd lists one folder in the background. Sibling expands run as
// independent commands and never serialize on each other.
func (m *Model) expandCmd(id tree.NodeID) tea.Cmd {
	return func() tea.Msg {
		_, err := m.tree.Expand(m.ctx, id)
		return childrenMsg{id: id, err: err}
	}
}

// waitEventCmd delivers the next bus event as a message. The handler
// re-arms it, so exactly one of these is outstanding at a time.
func (m *Model) waitEventCmd() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.sub
		if !ok {
			return nil
		}
		return busMsg{event: ev}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func splashCmd() tea.Cmd {
	return tea.Tick(900*time.Millisecond, func(time.Time) tea.Msg {
		return splashDoneMsg{}
	})
}

// startDownloadCmd launches the selected folder's download worker.
// A spawn failure surfaces as a job state event on the bus, so the
// returned error needs no second path into the loop.
func (m *Model) startDownloadCmd(w *worker.Worker, args []string) tea.Cmd {
	return func() tea.Msg {
		_ = w.Start(m.ctx, args...)
		return nil
	}
}
