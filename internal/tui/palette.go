package tui

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// CommandID names a palette action.
type CommandID string

const (
	CmdRefresh      CommandID = "refresh"
	CmdDownload     CommandID = "download"
	CmdSwitchRemote CommandID = "switch-remote"
	CmdToggleTheme  CommandID = "toggle-theme"
	CmdPreferences  CommandID = "preferences"
	CmdAbout        CommandID = "about"
	CmdQuit         CommandID = "quit"
)

// Command is one palette entry. The handler runs against the model
// when the entry is executed; the binding is fixed at registration.
type Command struct {
	ID      CommandID
	Title   string
	Keys    string // display hint, e.g. "d"
	handler func(*Model) tea.Cmd
}

// commandRegistry returns the palette entries in display order.
func commandRegistry() []Command {
	return []Command{
		{CmdRefresh, "Refresh current folder", "r", (*Model).cmdRefresh},
		{CmdDownload, "Download selected folder", "d", (*Model).cmdDownload},
		{CmdSwitchRemote, "Switch remote", "s", (*Model).cmdSwitchRemote},
		{CmdToggleTheme, "Toggle dark/light theme", "t", (*Model).cmdToggleTheme},
		{CmdPreferences, "Open preferences", ",", (*Model).cmdPreferences},
		{CmdAbout, "About cloudtree", "", (*Model).cmdAbout},
		{CmdQuit, "Quit", "q", (*Model).cmdQuit},
	}
}

// filterCommands returns the entries matching a case-insensitive
// subsequence-by-word query, best matches first. An empty query keeps
// registration order.
func filterCommands(commands []Command, query string) []Command {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return commands
	}

	type scored struct {
		cmd   Command
		score int
	}
	var out []scored
	for _, c := range commands {
		title := strings.ToLower(c.Title)
		switch {
		case strings.HasPrefix(title, query):
			out = append(out, scored{c, 0})
		case strings.Contains(title, query):
			out = append(out, scored{c, 1})
		case containsAllWords(title, query):
			out = append(out, scored{c, 2})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score < out[j].score })

	matches := make([]Command, len(out))
	for i, s := range out {
		matches[i] = s.cmd
	}
	return matches
}

func containsAllWords(title, query string) bool {
	for _, w := range strings.Fields(query) {
		if !strings.Contains(title, w) {
			return false
		}
	}
	return true
}
