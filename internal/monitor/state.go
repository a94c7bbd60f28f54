package monitor

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/nvglance/internal/control"
	"github.com/rileyhilliard/nvglance/internal/proctable"
	"github.com/rileyhilliard/nvglance/internal/scheduler"
)

// StatusTTL is how long a status message stays on screen.
const StatusTTL = 3 * time.Second

// Mode is the input mode of the dashboard.
type Mode int

const (
	ModeNormal Mode = iota
	ModeHelp
	ModeConfirm
)

// String returns a human-readable label for the mode.
func (m Mode) String() string {
	switch m {
	case ModeHelp:
		return "help"
	case ModeConfirm:
		return "confirm"
	default:
		return "normal"
	}
}

// Confirm is a pending process action awaiting y/n.
type Confirm struct {
	PID  int32
	Name string
	Kind control.Kind
}

// PanelState is the sort and selection of one process table.
type PanelState struct {
	Column     proctable.Column
	Descending bool
	Selection  proctable.Selection
}

// Status is a transient message for the footer.
type Status struct {
	Text string
	At   time.Time
}

// State is everything the input handler owns. It is a plain value; every
// transition returns a new one.
type State struct {
	Mode    Mode
	Confirm Confirm
	Focus   proctable.Panel
	Panels  [2]PanelState

	ShowAll bool
	Graphs  bool
	Compact bool
	Filter  string

	Interval     time.Duration
	GPUAvailable bool

	Status Status
	// Clock is the time of the last event seen.
	Clock time.Time
}

// NewState returns the initial state: host panel focused, CPU descending,
// GPU processes by memory descending.
func NewState(interval time.Duration, gpuAvailable bool) State {
	s := State{
		Focus:        proctable.PanelHost,
		Graphs:       true,
		Interval:     scheduler.ClampInterval(interval),
		GPUAvailable: gpuAvailable,
	}
	s.Panels[proctable.PanelHost] = PanelState{Column: proctable.ColumnCPU, Descending: true}
	s.Panels[proctable.PanelGPU] = PanelState{Column: proctable.ColumnGPUMem, Descending: true}
	return s
}

// Options returns the table options for panel p.
func (s State) Options(p proctable.Panel) proctable.Options {
	ps := s.Panels[p]
	return proctable.Options{
		Panel:      p,
		Column:     ps.Column,
		Descending: ps.Descending,
		ShowAll:    s.ShowAll,
		Filter:     s.Filter,
	}
}

// Selected returns the selection of panel p.
func (s State) Selected(p proctable.Panel) proctable.Selection {
	return s.Panels[p].Selection
}

// Reconcile re-locates both selections against freshly built tables.
func (s State) Reconcile(t Tables) State {
	for _, p := range []proctable.Panel{proctable.PanelHost, proctable.PanelGPU} {
		s.Panels[p].Selection = s.Panels[p].Selection.Resolve(t.For(p))
	}
	if !s.GPUAvailable {
		s.Focus = proctable.PanelHost
	}
	return s
}

func (s State) panel() PanelState {
	return s.Panels[s.Focus]
}

func (s *State) setPanel(p PanelState) {
	s.Panels[s.Focus] = p
}

func (s State) withStatus(text string) State {
	s.Status = Status{Text: text, At: s.Clock}
	return s
}

func (s State) expireStatus(now time.Time) State {
	if s.Status.Text != "" && !now.IsZero() && now.Sub(s.Status.At) >= StatusTTL {
		s.Status = Status{}
	}
	return s
}

func (s State) move(t Tables, delta int) State {
	rows := t.For(s.Focus)
	p := s.panel()
	p.Selection = p.Selection.Resolve(rows).Move(rows, delta)
	s.setPanel(p)
	return s
}

func (s State) selectIndex(t Tables, index int) State {
	p := s.panel()
	p.Selection = proctable.At(t.For(s.Focus), index)
	s.setPanel(p)
	return s
}

func (s State) adjustInterval(delta time.Duration) (State, Effect) {
	next := scheduler.ClampInterval(s.Interval + delta)
	if next == s.Interval {
		return s, Effect{}
	}
	s.Interval = next
	s = s.withStatus(fmt.Sprintf("Refresh interval %s", next))
	return s, Effect{Kind: EffectSetInterval, Interval: next}
}

func (s State) confirm(t Tables, kind control.Kind) State {
	rows := t.For(s.Focus)
	sel := s.panel().Selection.Resolve(rows)
	if len(rows) == 0 || !sel.Valid {
		return s.withStatus("No process selected")
	}
	s.Mode = ModeConfirm
	s.Confirm = Confirm{PID: sel.PID, Name: rows[sel.Index].Name, Kind: kind}
	return s
}

// Tables holds the rows each panel currently shows.
type Tables struct {
	Host []proctable.Row
	GPU  []proctable.Row
}

// For returns the rows of panel p.
func (t Tables) For(p proctable.Panel) []proctable.Row {
	if p == proctable.PanelGPU {
		return t.GPU
	}
	return t.Host
}
