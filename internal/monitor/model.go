package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/nvglance/internal/control"
	"github.com/rileyhilliard/nvglance/internal/history"
	"github.com/rileyhilliard/nvglance/internal/logger"
	"github.com/rileyhilliard/nvglance/internal/metrics"
	"github.com/rileyhilliard/nvglance/internal/proctable"
)

// LayoutMode is the responsive layout chosen from the terminal width.
type LayoutMode int

const (
	// LayoutMinimal is for terminals < 80 columns: one column, no graphs.
	LayoutMinimal LayoutMode = iota
	// LayoutStandard stacks panels with inline graphs.
	LayoutStandard
	// LayoutWide puts CPU and memory side by side.
	LayoutWide
)

// Width breakpoints for layout modes
const (
	BreakpointStandard = 80
	BreakpointWide     = 140
)

const (
	// statusTick drives status expiry and the "updated Ns ago" header.
	statusTick = 500 * time.Millisecond
	// signalTimeout bounds one control call.
	signalTimeout = 2 * time.Second
)

// Feed is the part of the scheduler the dashboard depends on.
type Feed interface {
	Updates() <-chan *metrics.Snapshot
	Latest() *metrics.Snapshot
	History() *history.Store
	SetInterval(d time.Duration) time.Duration
	Stop()
}

// Options configures NewModel.
type Options struct {
	Feed       Feed
	Controller control.Controller
	Logger     logger.Logger
	// State is the initial UI state, normally NewState plus CLI overrides.
	State State
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Model is the Bubble Tea model for the dashboard. All input goes through
// Transition; the model only carries out the returned effects and renders.
type Model struct {
	feed    Feed
	ctrl    control.Controller
	log     logger.Logger
	now     func() time.Time
	history *history.Store

	state  State
	snap   *metrics.Snapshot
	tables Tables

	width    int
	height   int
	quitting bool

	help      viewport.Model
	helpReady bool
	gauge     progress.Model
}

// snapshotMsg carries a newly published snapshot.
type snapshotMsg struct {
	snap *metrics.Snapshot
}

// tickMsg advances the clock for status expiry.
type tickMsg time.Time

// NewModel creates the dashboard model.
func NewModel(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctrl := opts.Controller
	if ctrl == nil {
		ctrl = control.NewOSController(log)
	}

	m := Model{
		feed:    opts.Feed,
		ctrl:    ctrl,
		log:     log,
		now:     now,
		history: opts.Feed.History(),
		state:   opts.State,
		gauge:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	if m.history == nil {
		m.history = history.NewStore(history.DefaultSize)
	}
	m.snap = opts.Feed.Latest()
	m.rebuild()
	return m
}

// Init starts waiting for snapshots and the status clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), tickCmd())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeHelp()
		return m, nil

	case snapshotMsg:
		if msg.snap == nil {
			return m, nil
		}
		m.snap = msg.snap
		m.rebuild()
		return m, m.waitForSnapshot()

	case tickMsg:
		m = m.apply(TickEvent{At: time.Time(msg)})
		return m, tickCmd()

	case tea.KeyMsg:
		return m.dispatch(KeyEvent{Key: msg.String(), At: m.now()})

	case tea.MouseMsg:
		if m.state.Mode == ModeHelp && tea.MouseEvent(msg).IsWheel() {
			var cmd tea.Cmd
			m.help, cmd = m.help.Update(msg)
			return m, cmd
		}
		if ev := m.mouseEvent(msg); ev != nil {
			return m.dispatch(ev)
		}
		return m, nil

	case SignalResultEvent:
		return m.dispatch(msg)
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.state.Mode {
	case ModeHelp:
		return m.renderHelpOverlay()
	case ModeConfirm:
		return m.renderConfirmDialog()
	}
	return m.renderDashboard()
}

// State returns the current UI state.
func (m Model) State() State {
	return m.state
}

// Tables returns the rows currently shown.
func (m Model) Tables() Tables {
	return m.tables
}

// dispatch runs one event through Transition and performs its effect.
func (m Model) dispatch(ev Event) (tea.Model, tea.Cmd) {
	next, eff := Transition(m.state, ev, m.tables)
	prev := m.state
	m.state = next
	if tableInputsChanged(prev, next) {
		m.rebuild()
	}
	if m.helpReady && prev.Mode != ModeHelp && next.Mode == ModeHelp {
		m.help.GotoTop()
	}
	cmd := m.perform(eff)
	return m, cmd
}

// apply runs an event whose effect is always none.
func (m Model) apply(ev Event) Model {
	m.state, _ = Transition(m.state, ev, m.tables)
	return m
}

func (m *Model) perform(eff Effect) tea.Cmd {
	switch eff.Kind {
	case EffectQuit:
		m.quitting = true
		m.feed.Stop()
		return tea.Quit

	case EffectSetInterval:
		applied := m.feed.SetInterval(eff.Interval)
		m.log.Debug("refresh interval set to %s", applied)
		return nil

	case EffectSignal:
		return m.signalCmd(eff.PID, eff.Signal)
	}
	return nil
}

func tableInputsChanged(a, b State) bool {
	return a.Panels[proctable.PanelHost].Column != b.Panels[proctable.PanelHost].Column ||
		a.Panels[proctable.PanelHost].Descending != b.Panels[proctable.PanelHost].Descending ||
		a.Panels[proctable.PanelGPU].Column != b.Panels[proctable.PanelGPU].Column ||
		a.Panels[proctable.PanelGPU].Descending != b.Panels[proctable.PanelGPU].Descending ||
		a.ShowAll != b.ShowAll ||
		a.Filter != b.Filter
}

// rebuild recomputes both tables from the current snapshot and re-locates
// the selections.
func (m *Model) rebuild() {
	var procs []metrics.Process
	if m.snap != nil {
		procs = m.snap.Processes
	}
	m.tables = Tables{
		Host: proctable.Build(procs, m.state.Options(proctable.PanelHost)),
	}
	if m.state.GPUAvailable {
		m.tables.GPU = proctable.Build(procs, m.state.Options(proctable.PanelGPU))
	}
	m.state = m.state.Reconcile(m.tables)
}

// waitForSnapshot blocks on the scheduler's update channel. The channel
// holds only the newest snapshot, so a slow render never queues stale ones.
func (m Model) waitForSnapshot() tea.Cmd {
	ch := m.feed.Updates()
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg{snap: snap}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(statusTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// signalCmd sends the signal off the input loop and reports back with a
// SignalResultEvent.
func (m Model) signalCmd(pid int32, kind control.Kind) tea.Cmd {
	ctrl, now := m.ctrl, m.now
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
		defer cancel()
		err := ctrl.Signal(ctx, pid, kind)
		return SignalResultEvent{PID: pid, Kind: kind, Err: err, At: now()}
	}
}

func (m *Model) resizeHelp() {
	w, h := helpSize(m.width, m.height)
	if !m.helpReady {
		m.help = viewport.New(w, h)
		m.help.SetContent(helpContent())
		m.helpReady = true
		return
	}
	m.help.Width = w
	m.help.Height = h
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointWide:
		return LayoutWide
	case m.width >= BreakpointStandard:
		return LayoutStandard
	default:
		return LayoutMinimal
	}
}
