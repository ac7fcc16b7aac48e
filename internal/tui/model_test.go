package tui

import (
	"context"
	"path/filepath"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloudtree/cloudtree/internal/config"
	"github.com/cloudtree/cloudtree/internal/rclone"
	"github.com/cloudtree/cloudtree/internal/tree"
)

type stubLister struct {
	entries []rclone.Entry
}

func (s stubLister) ListDir(context.Context, string) ([]rclone.Entry, error) {
	return s.entries, nil
}

func TestDownloadDestinationPlacement(t *testing.T) {
	tr := tree.New(stubLister{entries: []rclone.Entry{
		{Name: "photos", Path: "photos", IsDir: true},
	}})
	tr.SetRemote("gdrive")
	m := &Model{
		tree:     tr,
		settings: config.NewSettings(),
		screen:   screenTree,
		loading:  make(map[tree.NodeID]bool),
	}
	m.settings.Downloads.DestDir = filepath.Join("/", "dl")
	m.refreshVisible()

	// A remote root lands in the destination directory itself.
	if cmd := m.cmdDownload(); cmd == nil {
		t.Fatal("expected a download command for the root")
	}
	if m.download.source != "gdrive:" {
		t.Errorf("source = %q, want gdrive:", m.download.source)
	}
	if m.download.dest != m.settings.Downloads.DestDir {
		t.Errorf("root dest = %q, want %q", m.download.dest, m.settings.Downloads.DestDir)
	}
	m.download = nil

	// A folder lands in a directory named after it.
	if _, err := tr.Expand(context.Background(), tr.Root()); err != nil {
		t.Fatal(err)
	}
	m.refreshVisible()
	m.selected = 1
	if cmd := m.cmdDownload(); cmd == nil {
		t.Fatal("expected a download command for the folder")
	}
	want := filepath.Join(m.settings.Downloads.DestDir, "photos")
	if m.download.dest != want {
		t.Errorf("folder dest = %q, want %q", m.download.dest, want)
	}
}

func TestFilterCommands(t *testing.T) {
	commands := commandRegistry()

	if got := filterCommands(commands, ""); len(got) != len(commands) {
		t.Errorf("empty query: %d matches, want all %d", len(got), len(commands))
	}

	got := filterCommands(commands, "download")
	if len(got) != 1 || got[0].ID != CmdDownload {
		t.Errorf("query 'download': %+v", got)
	}

	// Prefix matches rank ahead of substring matches.
	got = filterCommands(commands, "re")
	if len(got) < 2 {
		t.Fatalf("query 're': %d matches", len(got))
	}
	if got[0].ID != CmdRefresh {
		t.Errorf("query 're': first = %s, want refresh", got[0].ID)
	}

	// Word queries can hit across the title.
	got = filterCommands(commands, "theme toggle")
	if len(got) != 1 || got[0].ID != CmdToggleTheme {
		t.Errorf("query 'theme toggle': %+v", got)
	}

	if got := filterCommands(commands, "zzzz"); len(got) != 0 {
		t.Errorf("query 'zzzz': %d matches, want 0", len(got))
	}
}

func TestEveryCommandHasHandler(t *testing.T) {
	for _, c := range commandRegistry() {
		if c.handler == nil {
			t.Errorf("command %s has no handler", c.ID)
		}
		if c.Title == "" {
			t.Errorf("command %s has no title", c.ID)
		}
	}
}

func TestPaletteTypingAndEscape(t *testing.T) {
	m := &Model{commands: commandRegistry(), theme: DarkTheme()}
	m.openPalette()

	for _, r := range "quit" {
		m.updatePaletteKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if m.paletteQuery != "quit" {
		t.Errorf("query = %q", m.paletteQuery)
	}
	if got := m.paletteMatches(); len(got) != 1 || got[0].ID != CmdQuit {
		t.Errorf("matches = %+v", got)
	}

	m.updatePaletteKey(tea.KeyMsg{Type: tea.KeyBackspace})
	if m.paletteQuery != "qui" {
		t.Errorf("after backspace query = %q", m.paletteQuery)
	}

	m.updatePaletteKey(tea.KeyMsg{Type: tea.KeyEsc})
	if m.paletteOpen {
		t.Error("esc should close the palette")
	}
}

func TestClampSelection(t *testing.T) {
	m := &Model{visible: []tree.NodeID{0, 1, 2}, selected: 7, offset: 5}
	m.clampSelection()
	if m.selected != 2 {
		t.Errorf("selected = %d, want 2", m.selected)
	}
	if m.offset > m.selected {
		t.Errorf("offset %d above selection %d", m.offset, m.selected)
	}

	m.visible = nil
	m.clampSelection()
	if m.selected != 0 || m.offset != 0 {
		t.Errorf("empty list: selected=%d offset=%d, want 0/0", m.selected, m.offset)
	}
	if m.selectedNode() != tree.InvalidNode {
		t.Error("selectedNode on empty list should be invalid")
	}
}

func TestTrimStatus(t *testing.T) {
	if got := trimStatus("short", 80); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := trimStatus("abcdefghij", 7); got != "abcd..." {
		t.Errorf("got %q", got)
	}
	if got := trimStatus("abcdefghij", 2); got != "ab" {
		t.Errorf("got %q", got)
	}

	// Multi-byte runes are never split.
	if got := trimStatus("ünïcödé-pfäd", 10); got != "ünïcödé..." {
		t.Errorf("got %q", got)
	}
	if got := trimStatus("ünïcödé", 7); got != "ünïcödé" {
		t.Errorf("got %q", got)
	}
	// Wide runes count as two cells.
	if got := trimStatus("日本語フォルダ", 5); got != "日..." {
		t.Errorf("got %q", got)
	}
	if !utf8.ValidString(trimStatus("日本語フォルダ", 4)) {
		t.Error("trim produced invalid UTF-8")
	}
}

func TestHumanizeBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 << 20, "3.0 MiB"},
		{int64(1.5 * (1 << 30)), "1.5 GiB"},
	}
	for _, tc := range cases {
		if got := humanizeBytes(tc.in); got != tc.want {
			t.Errorf("humanizeBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(50, 4); got != "[██░░]" {
		t.Errorf("renderBar(50, 4) = %q", got)
	}
	if got := renderBar(-5, 4); got != "[░░░░]" {
		t.Errorf("renderBar(-5, 4) = %q", got)
	}
	if got := renderBar(150, 4); got != "[████]" {
		t.Errorf("renderBar(150, 4) = %q", got)
	}
}
