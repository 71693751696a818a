// Package ui hosts the interactive layout explorer: a Bubble Tea program
// wrapping the force simulator and viewport controller. Frame ticks drive
// the physics, mouse events feed the gesture state machine, and settles
// schedule the debounced cache save.
package ui

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/knotwork/internal/datasource"
	"github.com/vanderheijden86/knotwork/pkg/analysis"
	"github.com/vanderheijden86/knotwork/pkg/config"
	"github.com/vanderheijden86/knotwork/pkg/debug"
	"github.com/vanderheijden86/knotwork/pkg/export"
	"github.com/vanderheijden86/knotwork/pkg/layout"
	"github.com/vanderheijden86/knotwork/pkg/layoutcache"
	"github.com/vanderheijden86/knotwork/pkg/metrics"
	"github.com/vanderheijden86/knotwork/pkg/model"
	"github.com/vanderheijden86/knotwork/pkg/viewport"
	"github.com/vanderheijden86/knotwork/pkg/watcher"
)

// Chrome rows around the canvas: one header line, one status line.
const chromeRows = 2

// statusMessageTTL is how long transient status messages stay visible.
const statusMessageTTL = 4 * time.Second

// frameTickMsg drives one simulation step per UI frame.
type frameTickMsg time.Time

// FileChangedMsg is sent when the watched edge source changes on disk.
type FileChangedMsg struct{}

// reloadedMsg carries the result of an async edge reload.
type reloadedMsg struct {
	edges []model.Edge
	err   error
}

// snapshotDoneMsg reports an async snapshot export.
type snapshotDoneMsg struct {
	path string
	err  error
}

// statusExpireMsg clears a transient status message. The sequence number
// keeps an old expiry from wiping a newer message.
type statusExpireMsg struct {
	seq int
}

// ReadyTimeoutMsg is sent after a short delay to ensure the UI becomes
// ready even if the terminal doesn't send WindowSizeMsg promptly.
type ReadyTimeoutMsg struct{}

// ReadyTimeoutCmd returns a command that sends ReadyTimeoutMsg after 100ms.
// This keeps the TUI from hanging on "Initializing..." when the terminal
// is slow to report its size (common in tmux, SSH, some emulators).
func ReadyTimeoutCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return ReadyTimeoutMsg{}
	})
}

// WatchFileCmd returns a command that waits for the next change event and
// sends FileChangedMsg.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

func frameTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}

func statusExpireCmd(seq int) tea.Cmd {
	return tea.Tick(statusMessageTTL, func(time.Time) tea.Msg {
		return statusExpireMsg{seq: seq}
	})
}

// Options configures a new explorer model.
type Options struct {
	// Edges is the initial link list. Required.
	Edges []model.Edge

	// Config supplies physics, viewport, cache, and UI knobs.
	Config config.Config

	// Store persists settled layouts. Nil disables caching.
	Store layoutcache.Store

	// Watcher delivers live-reload events. Nil disables watching.
	Watcher *watcher.Watcher

	// Reload re-reads the edge source after a change event. Nil leaves
	// change events unanswered.
	Reload func() ([]model.Edge, error)

	// VaultName labels the header. Empty shows the node count only.
	VaultName string
}

// Model is the main Bubble Tea model for kw.
type Model struct {
	sim        *layout.Simulator
	controller *viewport.Controller
	saver      *layoutcache.Saver
	store      layoutcache.Store
	watcher    *watcher.Watcher
	reload     func() ([]model.Edge, error)

	stats    *analysis.Stats
	dataHash string

	theme Theme
	spin  spinner.Model

	cfg       config.Config
	vaultName string

	ready  bool
	width  int
	height int

	showHelp   bool
	helpCache  string // rendered help markdown, invalidated on resize
	filterIdx  int    // 0 = no filter, 1..n index into model.Relationships()
	settleAnim int    // frames since last settle, drives the settle flash

	statusMsg     string
	statusIsError bool
	statusSeq     int
}

// NewModel builds the explorer around an initial edge list, restoring the
// cached layout when the store holds a matching entry.
func NewModel(opts Options) Model {
	cfg := opts.Config

	sim := layout.New(cfg.SimulatorConfig())
	sim.SetData(opts.Edges)

	var saver *layoutcache.Saver
	if opts.Store != nil {
		saver = layoutcache.NewSaver(opts.Store,
			layoutcache.WithDelay(cfg.Cache.SaveDelay()),
			layoutcache.WithOnError(func(err error) {
				debug.Log("cache save failed: %v", err)
			}),
		)
	}

	// The persist callback fires when a drag disturbs cache-restored
	// positions, so the moved layout reaches disk without a re-settle.
	persist := func() {
		if saver != nil {
			saver.Schedule(layoutcache.NewEntry(sim.ExportPositions(), sim.Edges()))
		}
	}

	controller := viewport.NewController(sim, cfg.ControllerConfig(),
		viewport.WithOnPersist(persist),
		viewport.WithLabelFunc(nodeLabel),
	)

	restored := false
	if opts.Store != nil {
		entry, err := opts.Store.Load()
		switch {
		case err != nil:
			debug.Log("cache load failed: %v", err)
			metrics.LayoutCache.RecordMiss()
		case entry == nil:
			metrics.LayoutCache.RecordMiss()
		case !entry.Matches(opts.Edges):
			metrics.LayoutCache.RecordInvalidation()
		default:
			restored = sim.LoadFromCache(entry.Nodes)
			if restored {
				metrics.LayoutCache.RecordHit()
			}
		}
	}
	controller.SetFromCache(restored)
	if !restored {
		sim.Start()
	}

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"})),
	)

	return Model{
		sim:        sim,
		controller: controller,
		saver:      saver,
		store:      opts.Store,
		watcher:    opts.Watcher,
		reload:     opts.Reload,
		stats:      analysis.NewAnalyzer(opts.Edges).AnalyzeAsync(),
		dataHash:   layoutcache.Fingerprint(opts.Edges),
		theme:      DefaultTheme(lipgloss.DefaultRenderer()),
		spin:       sp,
		cfg:        cfg,
		vaultName:  opts.VaultName,
	}
}

// Init starts the frame loop, the spinner, the ready fallback, and the
// file watch (when configured).
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spin.Tick,
		frameTickCmd(m.cfg.UI.FrameInterval()),
		ReadyTimeoutCmd(),
	}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

// Update is the single event loop; Bubble Tea guarantees it never runs
// concurrently with View, so simulator reads here need no extra locking
// beyond the simulator's own.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.controller.Resize(msg.Width, m.canvasHeight())
		m.helpCache = ""
		m.ready = true
		return m, nil

	case ReadyTimeoutMsg:
		if !m.ready {
			// Terminal never reported a size; assume a classic 80x24.
			m.width, m.height = 80, 24
			m.controller.Resize(m.width, m.canvasHeight())
			m.ready = true
		}
		return m, nil

	case frameTickMsg:
		if m.sim.State() == layout.StateRunning {
			stop := metrics.Timer(metrics.SimulationStep)
			stepped := m.sim.Step()
			stop()
			if !stepped {
				m.onSettled()
			}
		}
		if m.settleAnim > 0 {
			m.settleAnim--
		}
		return m, frameTickCmd(m.cfg.UI.FrameInterval())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case FileChangedMsg:
		return m.handleFileChanged()

	case reloadedMsg:
		return m.handleReloaded(msg)

	case snapshotDoneMsg:
		if msg.err != nil {
			return m.setStatus(fmt.Sprintf("snapshot failed: %v", msg.err), true)
		}
		return m.setStatus(fmt.Sprintf("snapshot written to %s", msg.path), false)

	case statusExpireMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
			m.statusIsError = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m.quit()

	case "?":
		m.showHelp = !m.showHelp
		if m.showHelp && m.helpCache == "" {
			m.helpCache = renderHelpMarkdown(m.width)
		}
		return m, nil

	case "esc":
		switch {
		case m.showHelp:
			m.showHelp = false
		case m.controller.Filter() != "":
			m.filterIdx = 0
			m.controller.ClearFilter()
		default:
			m.controller.Select("")
		}
		return m, nil

	case "r":
		m.cancelPendingSave()
		m.sim.Reheat()
		m.controller.SetFromCache(false)
		return m.setStatus("reheated", false)

	case "R":
		// Full restart: rebuild nodes onto a fresh jittered circle.
		m.cancelPendingSave()
		m.sim.SetData(m.sim.Edges())
		m.sim.Start()
		m.controller.SetFromCache(false)
		return m.setStatus("layout restarted", false)

	case "f":
		rels := model.Relationships()
		m.filterIdx = (m.filterIdx + 1) % (len(rels) + 1)
		if m.filterIdx == 0 {
			m.controller.ClearFilter()
			return m.setStatus("filter cleared", false)
		}
		rel := rels[m.filterIdx-1]
		m.controller.SetFilter(rel)
		return m.setStatus(fmt.Sprintf("filter: %s", rel.Label()), false)

	case "F":
		m.filterIdx = 0
		m.controller.ClearFilter()
		return m.setStatus("filter cleared", false)

	case "c", "y":
		id := m.controller.Selected()
		if id == "" {
			return m.setStatus("nothing selected", true)
		}
		if err := clipboard.WriteAll(id); err != nil {
			return m.setStatus(fmt.Sprintf("clipboard: %v", err), true)
		}
		return m.setStatus(fmt.Sprintf("copied %s", id), false)

	case "s":
		return m.startSnapshot()

	case "+", "=":
		m.controller.Wheel(true)
		return m, nil

	case "-", "_":
		m.controller.Wheel(false)
		return m, nil

	case "0":
		m.controller.ResetView()
		return m, nil
	}

	return m, nil
}

// handleMouse feeds raw cell coordinates into the gesture state machine.
// The canvas starts below the one-line header, so Y shifts up by one.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	x, y := msg.X, msg.Y-1
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.controller.Wheel(true)
	case msg.Button == tea.MouseButtonWheelDown:
		m.controller.Wheel(false)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.controller.PointerDown(x, y)
	case msg.Action == tea.MouseActionMotion:
		m.controller.PointerMove(x, y)
	case msg.Action == tea.MouseActionRelease:
		m.controller.PointerUp(x, y)
	}
}

func (m Model) handleFileChanged() (tea.Model, tea.Cmd) {
	if m.reload == nil {
		// Keep listening even when nobody answers; the watcher channel
		// must be drained or it stalls.
		return m, WatchFileCmd(m.watcher)
	}
	reload := m.reload
	reloadCmd := func() tea.Msg {
		edges, err := reload()
		return reloadedMsg{edges: edges, err: err}
	}
	return m, tea.Batch(reloadCmd, WatchFileCmd(m.watcher))
}

func (m Model) handleReloaded(msg reloadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.setStatus(fmt.Sprintf("reload failed: %v", msg.err), true)
	}

	// Touch events that re-wrote identical content must not disturb a
	// settled layout.
	prev := m.sim.Edges()
	if !datasource.Changed(prev, msg.edges) {
		return m.setStatus("links unchanged", false)
	}
	diff := datasource.DiffEdges(prev, msg.edges, "old", "new", datasource.DefaultDiffOptions())

	// A pending save would persist positions for the outgoing edge set.
	m.cancelPendingSave()

	m.sim.SetData(msg.edges)
	m.stats = analysis.NewAnalyzer(msg.edges).AnalyzeAsync()
	m.dataHash = layoutcache.Fingerprint(msg.edges)

	restored := false
	if m.store != nil {
		if entry, err := m.store.Load(); err == nil && entry.Matches(msg.edges) {
			restored = m.sim.LoadFromCache(entry.Nodes)
			if restored {
				metrics.LayoutCache.RecordHit()
			}
		}
	}
	m.controller.SetFromCache(restored)
	if !restored {
		m.sim.Start()
	}

	return m.setStatus(fmt.Sprintf("reloaded %d links (+%d/-%d)",
		len(msg.edges), len(diff.MissingInA), len(diff.MissingInB)), false)
}

// onSettled fires once when the running simulation crosses the settle
// thresholds: the layout is final, so the debounced save gets scheduled.
func (m *Model) onSettled() {
	m.settleAnim = 30
	if m.saver != nil {
		m.saver.Schedule(layoutcache.NewEntry(m.sim.ExportPositions(), m.sim.Edges()))
	}
	debug.Log("settled after %d steps", m.sim.StepCount())
}

func (m *Model) cancelPendingSave() {
	if m.saver != nil {
		m.saver.Cancel()
	}
}

func (m Model) startSnapshot() (tea.Model, tea.Cmd) {
	opts := export.SnapshotOptions{
		Path:     fmt.Sprintf("kw-layout-%s.svg", time.Now().Format("20060102-150405")),
		Title:    m.vaultName,
		Model:    m.sim.Model(),
		Stats:    m.stats,
		DataHash: m.dataHash,
	}
	cmd := func() tea.Msg {
		err := export.WriteSnapshot(opts)
		return snapshotDoneMsg{path: opts.Path, err: err}
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.sim.Stop()
	// A settled layout is worth keeping even if the debounce window had
	// not elapsed yet. Stop never demotes Settled, so the check holds for
	// both converged and cache-restored layouts.
	if m.saver != nil && m.sim.State() == layout.StateSettled {
		m.saver.Flush(layoutcache.NewEntry(m.sim.ExportPositions(), m.sim.Edges()))
	}
	return m, tea.Quit
}

func (m Model) setStatus(text string, isError bool) (tea.Model, tea.Cmd) {
	m.statusMsg = text
	m.statusIsError = isError
	m.statusSeq++
	return m, statusExpireCmd(m.statusSeq)
}

func (m Model) canvasHeight() int {
	h := m.height - chromeRows
	if m.cfg.UI.HideStatusBar {
		h = m.height - 1
	}
	if h < 1 {
		h = 1
	}
	return h
}

// View renders header, canvas (or help overlay), and the status bar.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	if !m.ready {
		return fmt.Sprintf("\n  %s Initializing...", m.spin.View())
	}

	header := m.renderHeader()

	var body string
	if m.showHelp {
		body = m.renderHelp()
	} else {
		body = renderCanvas(canvasParams{
			sim:        m.sim,
			controller: m.controller,
			stats:      m.stats,
			theme:      m.theme,
			width:      m.width,
			height:     m.canvasHeight(),
			legend:     !m.cfg.UI.HideLegend,
			settleGlow: m.settleAnim > 0,
		})
	}

	if m.cfg.UI.HideStatusBar {
		return header + "\n" + body
	}
	return header + "\n" + body + "\n" + m.renderStatusBar()
}

func (m Model) renderHeader() string {
	t := m.theme
	name := m.vaultName
	if name == "" {
		name = "vault"
	}

	left := t.PrimaryBold.Render("kw") + t.MutedText.Render(" | ") + t.SecondaryText.Render(name)

	mdl := m.sim.Model()
	right := t.MutedText.Render(fmt.Sprintf("%d notes · %d links", mdl.Len(), len(m.sim.Edges())))

	leftW := lipgloss.Width(left)
	rightW := lipgloss.Width(right)
	fill := m.width - leftW - rightW
	if fill < 1 {
		fill = 1
	}
	bar := t.Renderer.NewStyle().Width(m.width).Background(t.Highlight)
	return bar.Render(left + t.Renderer.NewStyle().Width(fill).Background(t.Highlight).Render("") + right)
}

func (m Model) renderStatusBar() string {
	t := m.theme

	state := m.sim.State().String()
	stateStyle := t.Renderer.NewStyle().Foreground(t.StateColor(state)).Bold(true)
	segments := make([]string, 0, 8)

	if m.sim.State() == layout.StateRunning {
		segments = append(segments, m.spin.View()+stateStyle.Render(state))
	} else {
		segments = append(segments, stateStyle.Render("● "+state))
	}

	segments = append(segments, t.MutedText.Render(fmt.Sprintf("α %.3f", m.sim.Alpha())))
	segments = append(segments, t.MutedText.Render(fmt.Sprintf("%.1fx", m.controller.View().Scale)))

	if rel := m.controller.Filter(); rel != "" {
		filterStyle := t.Renderer.NewStyle().Foreground(RelationshipColor(rel)).Bold(true)
		segments = append(segments, filterStyle.Render("filter: "+rel.Label()))
	}
	if m.controller.FromCache() {
		segments = append(segments, t.SecondaryText.Render("cache ✓"))
	}
	if id := m.controller.Selected(); id != "" {
		segments = append(segments, t.PrimaryBold.Render(id))
	}

	if m.statusMsg != "" {
		style := t.SecondaryText
		if m.statusIsError {
			style = t.ErrorText
		}
		segments = append(segments, style.Render(m.statusMsg))
	}

	left := ""
	sep := t.MutedText.Render("  ")
	for i, s := range segments {
		if i > 0 {
			left += sep
		}
		left += s
	}

	right := t.MutedText.Render("? help · q quit")

	leftW := lipgloss.Width(left)
	rightW := lipgloss.Width(right)
	fill := m.width - leftW - rightW
	if fill < 1 {
		fill = 1
	}

	bar := t.StatusBar.Width(m.width)
	return bar.Render(left + t.Renderer.NewStyle().Width(fill).Background(t.Highlight).Render("") + right)
}
