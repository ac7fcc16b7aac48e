package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cloudtree/cloudtree/internal/update"
	"github.com/cloudtree/cloudtree/internal/version"
	"github.com/cloudtree/cloudtree/internal/worker"
)

func (m *Model) View() string {
	var body string
	switch {
	case m.paletteOpen:
		body = m.viewPalette()
	case m.download != nil:
		body = m.viewDownload()
	default:
		switch m.screen {
		case screenSplash:
			body = m.viewSplash()
		case screenRemotes:
			body = m.viewRemotes()
		case screenTree:
			body = m.viewTree()
		case screenPrefs:
			body = m.viewPrefs()
		case screenAbout:
			body = m.viewAbout()
		case screenError:
			body = m.viewError()
		}
	}
	return body + "\n" + m.viewStatusBar()
}

func (m *Model) viewSplash() string {
	art := []string{
		"       _                 _ _                 ",
		"  ___| | ___  _   _  __| | |_ _ __ ___  ___ ",
		" / __| |/ _ \\| | | |/ _` | __| '__/ _ \\/ _ \\",
		"| (__| | (_) | |_| | (_| | |_| | |  __/  __/",
		" \\___|_|\\___/ \\__,_|\\__,_|\\__|_|  \\___|\\___|",
	}
	var b strings.Builder
	b.WriteString("\n\n")
	for _, line := range art {
		b.WriteString("   " + m.theme.Title.Render(line) + "\n")
	}
	b.WriteString("\n   " + m.theme.Subtle.Render("browse and download cloud folders via rclone"))
	b.WriteString("\n   " + m.theme.Subtle.Render(version.Version))
	b.WriteString("\n\n   " + m.theme.Subtle.Render("press any key to continue"))
	return b.String()
}

func (m *Model) viewRemotes() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Remotes") + "\n\n")
	if len(m.remotes) == 0 {
		b.WriteString(m.theme.Subtle.Render("  " + spinnerFrames[m.spinner] + " loading remotes...") + "\n")
	}
	for i, r := range m.remotes {
		line := "  " + m.theme.Folder.Render(r+":")
		if i == m.remoteSelected {
			line = m.theme.Selected.Render("> " + r + ":")
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + m.helpLine("↑/↓ move", "enter open", "r reload", "ctrl+p palette", "q quit"))
	return b.String()
}

func (m *Model) viewTree() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(m.tree.Remote()+":") + "\n\n")

	end := m.offset + treeViewport
	if end > len(m.visible) {
		end = len(m.visible)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i) + "\n")
	}
	if len(m.visible) > end {
		b.WriteString(m.theme.Subtle.Render(fmt.Sprintf("  … %d more", len(m.visible)-end)) + "\n")
	}

	b.WriteString("\n" + m.helpLine("enter expand", "d download", "r refresh", "s remotes", "ctrl+p palette", "q quit"))
	return b.String()
}

func (m *Model) renderRow(i int) string {
	id := m.visible[i]
	node, ok := m.tree.Node(id)
	if !ok {
		return ""
	}

	indent := strings.Repeat("  ", node.Depth)
	marker := "  "
	label := node.Entry.Name
	style := m.theme.File

	if node.Entry.IsDir {
		style = m.theme.Folder
		switch {
		case m.loading[id]:
			marker = spinnerFrames[m.spinner] + " "
		case node.Expanded:
			marker = "▾ "
		default:
			marker = "▸ "
		}
	} else if node.Entry.Size >= 0 {
		label += m.theme.Subtle.Render("  " + humanizeBytes(node.Entry.Size))
	}

	row := indent + marker + style.Render(label)
	if node.Entry.IsDir && m.loading[id] {
		row += m.theme.Loading.Render("  Loading...")
	}
	if i == m.selected {
		return m.theme.Selected.Render("> ") + row
	}
	return "  " + row
}

func (m *Model) viewDownload() string {
	d := m.download
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Download") + "\n\n")
	b.WriteString("  from  " + m.theme.Folder.Render(d.source) + "\n")
	b.WriteString("  to    " + d.dest + "\n\n")

	switch {
	case d.state == worker.StateCompleted:
		b.WriteString("  " + m.theme.Folder.Render("✓ completed") + "\n")
	case d.state == worker.StateFailed:
		b.WriteString("  " + m.theme.ErrorText.Render("✗ failed") + "\n")
		if d.err != nil {
			b.WriteString("  " + m.theme.ErrorText.Render(trimStatus(d.err.Error(), 70)) + "\n")
		}
		for _, line := range d.tail {
			b.WriteString("  " + m.theme.Subtle.Render(trimStatus(line, 70)) + "\n")
		}
	case d.state == worker.StateCancelled:
		b.WriteString("  " + m.theme.Subtle.Render("cancelled") + "\n")
	default:
		b.WriteString("  " + spinnerFrames[m.spinner] + " " + m.renderProgressLine() + "\n")
	}

	if d.state.Terminal() {
		b.WriteString("\n" + m.helpLine("any key to dismiss"))
	} else {
		b.WriteString("\n" + m.helpLine("c cancel"))
	}
	return m.theme.Overlay.Render(b.String())
}

func (m *Model) renderProgressLine() string {
	p := m.download.progress
	if p.RawLine == "" {
		return "starting rclone..."
	}
	line := humanizeBytes(p.BytesDone)
	if p.BytesTotal > 0 {
		line += " / " + humanizeBytes(p.BytesTotal)
	}
	if p.Percent >= 0 {
		line += fmt.Sprintf("  %.0f%%", p.Percent)
		line += "  " + renderBar(p.Percent, 24)
	}
	if p.Rate > 0 {
		line += "  " + humanizeBytes(int64(p.Rate)) + "/s"
	}
	if p.HasETA {
		line += "  ETA " + p.ETA.String()
	}
	return line
}

func renderBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func (m *Model) viewPalette() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Command palette") + "\n\n")
	b.WriteString("  > " + m.paletteQuery + "▏\n\n")
	matches := m.paletteMatches()
	if len(matches) == 0 {
		b.WriteString(m.theme.Subtle.Render("  no matching commands") + "\n")
	}
	for i, c := range matches {
		line := "  " + c.Title
		if c.Keys != "" {
			line += m.theme.Subtle.Render("  (" + c.Keys + ")")
		}
		if i == m.paletteSelected {
			line = m.theme.Selected.Render("> " + c.Title)
			if c.Keys != "" {
				line += m.theme.Subtle.Render("  (" + c.Keys + ")")
			}
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + m.helpLine("enter run", "esc close"))
	return m.theme.Overlay.Render(b.String())
}

func (m *Model) viewPrefs() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Preferences") + "\n\n")

	rows := []string{
		fmt.Sprintf("Theme          %s", m.settings.UI.Theme),
		fmt.Sprintf("Splash screen  %t", m.settings.UI.Splash),
	}
	for i, row := range rows {
		if i == m.prefSelected {
			b.WriteString(m.theme.Selected.Render("> "+row) + "\n")
		} else {
			b.WriteString("  " + row + "\n")
		}
	}

	b.WriteString("\n" + m.theme.Subtle.Render("  rclone binary   "+m.settings.Rclone.Binary) + "\n")
	b.WriteString(m.theme.Subtle.Render("  downloads to    "+m.settings.Downloads.DestDir) + "\n")
	b.WriteString(m.theme.Subtle.Render("  edit more with: cloudtree config set <key> <value>") + "\n")
	b.WriteString("\n" + m.helpLine("enter toggle", "esc back"))
	return b.String()
}

func (m *Model) viewAbout() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("cloudtree") + "\n\n")
	b.WriteString("  version    " + version.Version + "\n")
	b.WriteString("  built      " + version.BuildTime + "\n")
	b.WriteString("  rclone     " + m.runner.Binary() + "\n")
	b.WriteString("  releases   " + update.ReleasesPageURL + "\n")
	b.WriteString("\n" + m.theme.Subtle.Render("  a tree browser and downloader for rclone remotes") + "\n")
	b.WriteString("\n" + m.helpLine("esc back"))
	return b.String()
}

func (m *Model) viewError() string {
	var b strings.Builder
	b.WriteString(m.theme.ErrorText.Render("Error") + "\n\n")
	b.WriteString("  " + m.errText + "\n")
	b.WriteString("\n" + m.helpLine("any key to go back", "q quit"))
	return b.String()
}

func (m *Model) viewStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	status := trimStatus(m.status, width-2)
	pad := maxInt(0, width-lipgloss.Width(status)-2)
	return m.theme.StatusBar.Render(" " + status + strings.Repeat(" ", pad) + " ")
}

func (m *Model) helpLine(parts ...string) string {
	for i, p := range parts {
		parts[i] = m.theme.Key.Render(p)
	}
	return "  " + strings.Join(parts, m.theme.Subtle.Render("  ·  "))
}

func humanizeBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
