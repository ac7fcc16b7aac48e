// Package tui is the interactive terminal interface: a remote picker,
// a lazily expanding folder tree, and a download overlay, all driven
// by the bubbletea event loop.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cloudtree/cloudtree/internal/config"
	"github.com/cloudtree/cloudtree/internal/constants"
	"github.com/cloudtree/cloudtree/internal/events"
	"github.com/cloudtree/cloudtree/internal/logging"
	"github.com/cloudtree/cloudtree/internal/rclone"
	"github.com/cloudtree/cloudtree/internal/tree"
	"github.com/cloudtree/cloudtree/internal/worker"
)

type screen int

const (
	screenSplash screen = iota
	screenRemotes
	screenTree
	screenPrefs
	screenAbout
	screenError
)

const treeViewport = 20

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧"}

// downloadState tracks the single in-flight download of the session.
type downloadState struct {
	worker   *worker.Worker
	source   string
	dest     string
	progress rclone.Progress
	state    worker.State
	err      error
	tail     []string
}

// Model is the bubbletea model for the whole interface.
type Model struct {
	ctx          context.Context
	client       *rclone.Client
	runner       *rclone.Runner
	tree         *tree.Model
	bus          *events.EventBus
	sub          <-chan events.Event
	settings     *config.Settings
	settingsPath string
	logger       *logging.Logger
	theme        Theme

	screen     screen
	prevScreen screen
	width      int
	height     int
	status     string
	errText    string
	spinner    int
	spinning   bool

	remotes        []string
	remoteSelected int

	visible  []tree.NodeID
	selected int
	offset   int
	loading  map[tree.NodeID]bool

	paletteOpen     bool
	paletteQuery    string
	paletteSelected int
	commands        []Command

	prefSelected int

	download  *downloadState
	jobSerial int
}

// New assembles the interface around an rclone client and the user's
// settings. The bus carries worker and activation events into the loop.
func New(ctx context.Context, client *rclone.Client, bus *events.EventBus,
	settings *config.Settings, settingsPath string, logger *logging.Logger) *Model {

	first := screenSplash
	if !settings.UI.Splash {
		first = screenRemotes
	}
	return &Model{
		ctx:          ctx,
		client:       client,
		runner:       client.Runner(),
		tree:         tree.New(client),
		bus:          bus,
		sub:          bus.SubscribeAll(),
		settings:     settings,
		settingsPath: settingsPath,
		logger:       logger,
		theme:        ThemeByName(settings.UI.Theme),
		screen:       first,
		status:       "Loading remotes...",
		loading:      make(map[tree.NodeID]bool),
		commands:     commandRegistry(),
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadRemotesCmd(), m.waitEventCmd()}
	if m.screen == screenSplash {
		cmds = append(cmds, splashCmd())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	case splashDoneMsg:
		if m.screen == screenSplash {
			m.screen = screenRemotes
		}
		return m, nil
	case remotesMsg:
		return m.handleRemotes(msg)
	case childrenMsg:
		return m.handleChildren(msg)
	case busMsg:
		return m.handleBusEvent(msg)
	case tickMsg:
		if m.spinning {
			m.spinner = (m.spinner + 1) % len(spinnerFrames)
			return m, tickCmd()
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleRemotes(msg remotesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.showError(fmt.Sprintf("Cannot list remotes: %v", msg.err)), nil
	}
	m.remotes = msg.remotes
	m.status = fmt.Sprintf("%d remotes", len(m.remotes))
	if len(m.remotes) == 0 {
		return m.showError("No remotes configured. Run `rclone config` first."), nil
	}

	// Pick up where the last session ended.
	if last := m.settings.State.LastRemote; last != "" {
		for i, r := range m.remotes {
			if r == last {
				m.remoteSelected = i
				if m.screen == screenRemotes {
					return m, m.selectRemote(r)
				}
				break
			}
		}
	}
	return m, nil
}

func (m *Model) selectRemote(remote string) tea.Cmd {
	m.tree.SetRemote(remote)
	m.screen = screenTree
	m.selected = 0
	m.offset = 0
	m.loading = make(map[tree.NodeID]bool)
	m.refreshVisible()
	return m.expandNode(m.tree.Root())
}

// expandNode kicks off a background listing with a Loading marker.
func (m *Model) expandNode(id tree.NodeID) tea.Cmd {
	if m.loading[id] {
		return nil
	}
	m.loading[id] = true
	m.spinning = true
	m.status = "Loading " + m.tree.RemotePath(id)
	return tea.Batch(m.expandCmd(id), tickCmd())
}

func (m *Model) handleChildren(msg childrenMsg) (tea.Model, tea.Cmd) {
	delete(m.loading, msg.id)
	if len(m.loading) == 0 && (m.download == nil || m.download.state.Terminal()) {
		m.spinning = false
	}
	if msg.err != nil {
		// The tree is untouched on failure; report and stay put.
		m.status = fmt.Sprintf("List failed: %v", msg.err)
		m.logger.Warn().Err(msg.err).Msg("folder listing failed")
		return m, nil
	}
	node, ok := m.tree.Node(msg.id)
	if ok {
		m.status = fmt.Sprintf("%s: %d entries", m.tree.RemotePath(msg.id), len(node.Children))
	}
	m.refreshVisible()
	return m, nil
}

func (m *Model) handleBusEvent(msg busMsg) (tea.Model, tea.Cmd) {
	switch ev := msg.event.(type) {
	case *events.ProgressEvent:
		if m.download != nil && ev.JobID == m.download.worker.ID() {
			m.download.progress = rclone.Progress{
				BytesDone:  ev.BytesDone,
				BytesTotal: ev.BytesTotal,
				Percent:    ev.Percent,
				Rate:       ev.Rate,
				ETA:        ev.ETA,
				HasETA:     ev.HasETA,
				RawLine:    ev.RawLine,
			}
		}
	case *events.DiagnosticEvent:
		if m.download != nil && ev.JobID == m.download.worker.ID() {
			m.download.tail = append(m.download.tail, ev.Line)
			if len(m.download.tail) > constants.StderrTailLines {
				m.download.tail = m.download.tail[1:]
			}
		}
	case *events.JobStateEvent:
		if m.download != nil && ev.JobID == m.download.worker.ID() {
			m.download.state = m.download.worker.State()
			m.download.err = ev.Err
			if m.download.state.Terminal() && len(m.loading) == 0 {
				m.spinning = false
			}
		}
	case *events.ActivateEvent:
		m.status = "Another launch requested this window"
	}
	return m, m.waitEventCmd()
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.paletteOpen {
		return m.updatePaletteKey(msg)
	}
	if m.download != nil {
		return m.updateDownloadKey(msg)
	}

	switch m.screen {
	case screenSplash:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		m.screen = screenRemotes
		return m, nil
	case screenRemotes:
		return m.updateRemotesKey(msg)
	case screenTree:
		return m.updateTreeKey(msg)
	case screenPrefs:
		return m.updatePrefsKey(msg)
	case screenAbout, screenError:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		m.screen = m.prevScreen
		return m, nil
	}
	return m, nil
}

func (m *Model) updateRemotesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, m.quit()
	case "up", "k":
		if m.remoteSelected > 0 {
			m.remoteSelected--
		}
	case "down", "j":
		if m.remoteSelected < len(m.remotes)-1 {
			m.remoteSelected++
		}
	case "enter", "right", "l":
		if len(m.remotes) > 0 {
			return m, m.selectRemote(m.remotes[m.remoteSelected])
		}
	case "ctrl+p":
		m.openPalette()
	case "r":
		m.status = "Reloading remotes..."
		return m, m.loadRemotesCmd()
	}
	return m, nil
}

func (m *Model) updateTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, m.quit()
	case "up", "k":
		if m.selected > 0 {
			m.selected--
			if m.selected < m.offset {
				m.offset = m.selected
			}
		}
	case "down", "j":
		if m.selected < len(m.visible)-1 {
			m.selected++
			if m.selected >= m.offset+treeViewport {
				m.offset = m.selected - treeViewport + 1
			}
		}
	case "enter", "right", "l":
		id := m.selectedNode()
		if id == tree.InvalidNode {
			return m, nil
		}
		node, _ := m.tree.Node(id)
		if !node.Entry.IsDir {
			return m, nil
		}
		if node.Expanded {
			m.tree.Collapse(id)
			m.refreshVisible()
			return m, nil
		}
		cmd := m.expandNode(id)
		if node.Loaded {
			m.refreshVisible()
		}
		return m, cmd
	case "left", "h":
		id := m.selectedNode()
		if id == tree.InvalidNode {
			return m, nil
		}
		node, _ := m.tree.Node(id)
		if node.Entry.IsDir && node.Expanded {
			m.tree.Collapse(id)
			m.refreshVisible()
			return m, nil
		}
		m.selectNode(node.Parent)
		return m, nil
	case "d":
		return m, m.cmdDownload()
	case "r":
		return m, m.cmdRefresh()
	case "s", "esc":
		return m, m.cmdSwitchRemote()
	case ",":
		return m, m.cmdPreferences()
	case "ctrl+p":
		m.openPalette()
	}
	return m, nil
}

func (m *Model) updatePrefsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, m.quit()
	case "esc":
		m.screen = m.prevScreen
	case "up", "k":
		if m.prefSelected > 0 {
			m.prefSelected--
		}
	case "down", "j":
		if m.prefSelected < 1 {
			m.prefSelected++
		}
	case "enter", " ":
		switch m.prefSelected {
		case 0:
			return m, m.cmdToggleTheme()
		case 1:
			m.settings.UI.Splash = !m.settings.UI.Splash
			m.saveSettings()
		}
	}
	return m, nil
}

func (m *Model) updateDownloadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.download.state.Terminal() {
		// Any key dismisses the finished overlay.
		m.download = nil
		return m, nil
	}
	switch msg.String() {
	case "c", "esc", "ctrl+c":
		m.download.worker.Cancel()
		m.status = "Cancelling download..."
	}
	return m, nil
}

func (m *Model) updatePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+p":
		m.paletteOpen = false
		return m, nil
	case "up", "ctrl+k":
		if m.paletteSelected > 0 {
			m.paletteSelected--
		}
		return m, nil
	case "down", "ctrl+j":
		if m.paletteSelected < len(m.paletteMatches())-1 {
			m.paletteSelected++
		}
		return m, nil
	case "enter":
		matches := m.paletteMatches()
		if m.paletteSelected < len(matches) {
			cmd := matches[m.paletteSelected]
			m.paletteOpen = false
			return m, cmd.handler(m)
		}
		m.paletteOpen = false
		return m, nil
	case "backspace":
		if len(m.paletteQuery) > 0 {
			m.paletteQuery = m.paletteQuery[:len(m.paletteQuery)-1]
			m.paletteSelected = 0
		}
		return m, nil
	}
	if msg.Type == tea.KeyRunes {
		m.paletteQuery += string(msg.Runes)
		m.paletteSelected = 0
	}
	return m, nil
}

func (m *Model) openPalette() {
	m.paletteOpen = true
	m.paletteQuery = ""
	m.paletteSelected = 0
}

func (m *Model) paletteMatches() []Command {
	return filterCommands(m.commands, m.paletteQuery)
}

// Palette handlers. The registry binds each CommandID to one of these
// at startup; dispatch never re-resolves by name.

func (m *Model) cmdRefresh() tea.Cmd {
	if m.screen != screenTree {
		return nil
	}
	id := m.selectedNode()
	if id == tree.InvalidNode {
		return nil
	}
	node, _ := m.tree.Node(id)
	if !node.Entry.IsDir {
		id = node.Parent
	}
	m.tree.Refresh(id)
	m.refreshVisible()
	return m.expandNode(id)
}

func (m *Model) cmdDownload() tea.Cmd {
	if m.screen != screenTree {
		return nil
	}
	if m.download != nil && !m.download.state.Terminal() {
		m.status = "A download is already running"
		return nil
	}
	id := m.selectedNode()
	if id == tree.InvalidNode {
		return nil
	}
	node, _ := m.tree.Node(id)
	if !node.Entry.IsDir {
		m.status = "Select a folder to download"
		return nil
	}

	source := m.tree.RemotePath(id)
	// A remote root goes straight into the destination directory,
	// anything deeper into a folder named after it.
	dest := m.settings.Downloads.DestDir
	if node.Path != "" {
		dest = filepath.Join(dest, node.Entry.Name)
	}
	m.jobSerial++
	w := worker.New(fmt.Sprintf("tui-download-%d", m.jobSerial), m.runner, m.bus, m.logger)
	m.download = &downloadState{worker: w, source: source, dest: dest, state: worker.StateIdle}
	m.spinning = true
	return tea.Batch(
		m.startDownloadCmd(w, rclone.CopyArgs(source, dest, constants.ProgressStatsInterval)),
		tickCmd(),
	)
}

func (m *Model) cmdSwitchRemote() tea.Cmd {
	m.saveSessionState()
	m.screen = screenRemotes
	return nil
}

func (m *Model) cmdToggleTheme() tea.Cmd {
	if m.settings.UI.Theme == "dark" {
		m.settings.UI.Theme = "light"
	} else {
		m.settings.UI.Theme = "dark"
	}
	m.theme = ThemeByName(m.settings.UI.Theme)
	m.saveSettings()
	return nil
}

func (m *Model) cmdPreferences() tea.Cmd {
	if m.screen != screenPrefs {
		m.prevScreen = m.screen
		m.screen = screenPrefs
		m.prefSelected = 0
	}
	return nil
}

func (m *Model) cmdAbout() tea.Cmd {
	if m.screen != screenAbout {
		m.prevScreen = m.screen
		m.screen = screenAbout
	}
	return nil
}

func (m *Model) cmdQuit() tea.Cmd {
	return m.quit()
}

// quit persists session state and stops the program. A running
// download is cancelled so its process group dies with the UI.
func (m *Model) quit() tea.Cmd {
	if m.download != nil && !m.download.state.Terminal() {
		m.download.worker.Cancel()
	}
	m.saveSessionState()
	return tea.Quit
}

func (m *Model) saveSessionState() {
	if m.tree.Remote() != "" {
		m.settings.State.LastRemote = m.tree.Remote()
		if id := m.selectedNode(); id != tree.InvalidNode {
			if node, ok := m.tree.Node(id); ok {
				m.settings.State.LastPath = node.Path
			}
		}
	}
	m.saveSettings()
}

func (m *Model) saveSettings() {
	if err := config.Save(m.settings, m.settingsPath); err != nil {
		m.logger.Warn().Err(err).Msg("failed to save settings")
	}
}

func (m *Model) showError(text string) *Model {
	m.prevScreen = m.screen
	m.errText = text
	m.screen = screenError
	return m
}

func (m *Model) refreshVisible() {
	m.visible = m.tree.Flatten()
	m.clampSelection()
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.visible) {
		m.selected = len(m.visible) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.offset > m.selected {
		m.offset = m.selected
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) selectedNode() tree.NodeID {
	if m.selected < 0 || m.selected >= len(m.visible) {
		return tree.InvalidNode
	}
	return m.visible[m.selected]
}

func (m *Model) selectNode(id tree.NodeID) {
	for i, v := range m.visible {
		if v == id {
			m.selected = i
			if m.selected < m.offset {
				m.offset = m.selected
			}
			return
		}
	}
}

// Run starts the program on the alternate screen.
func Run(m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// trimStatus shortens status text to the given display width. Cuts on
// rune boundaries and counts cell width, so non-ASCII paths survive.
func trimStatus(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	ellipsis := "..."
	if width <= len(ellipsis) {
		ellipsis = ""
	}
	budget := width - len(ellipsis)
	var b strings.Builder
	used := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if used+rw > budget {
			break
		}
		b.WriteRune(r)
		used += rw
	}
	return b.String() + ellipsis
}
