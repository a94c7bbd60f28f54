package monitor

import (
	"time"

	"github.com/rileyhilliard/nvglance/internal/control"
	"github.com/rileyhilliard/nvglance/internal/proctable"
)

// Event is an input to Transition.
type Event interface {
	Time() time.Time
}

// KeyEvent is a key press in tea.KeyMsg.String() form.
type KeyEvent struct {
	Key string
	At  time.Time
}

// ClickEvent is a left click on a process table. Row is the index into that
// panel's rows, or -1 when the click missed every row.
type ClickEvent struct {
	Panel proctable.Panel
	Row   int
	At    time.Time
}

// ScrollEvent is a wheel movement; negative Delta scrolls up.
type ScrollEvent struct {
	Delta int
	At    time.Time
}

// SignalResultEvent reports the outcome of an EffectSignal.
type SignalResultEvent struct {
	PID  int32
	Kind control.Kind
	Err  error
	At   time.Time
}

// TickEvent only advances the clock so status messages can expire.
type TickEvent struct {
	At time.Time
}

func (e KeyEvent) Time() time.Time          { return e.At }
func (e ClickEvent) Time() time.Time        { return e.At }
func (e ScrollEvent) Time() time.Time       { return e.At }
func (e SignalResultEvent) Time() time.Time { return e.At }
func (e TickEvent) Time() time.Time         { return e.At }

// EffectKind is what the caller must do after a transition.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectQuit
	EffectSignal
	EffectSetInterval
)

// Effect is the side effect requested by a transition. Only the fields for
// Kind are set.
type Effect struct {
	Kind     EffectKind
	PID      int32
	Signal   control.Kind
	Interval time.Duration
}

// Transition applies ev to s. It has no side effects; anything that must
// happen outside the state is returned as an Effect. Unknown events leave
// the state unchanged apart from the clock.
func Transition(s State, ev Event, t Tables) (State, Effect) {
	if ev == nil {
		return s, Effect{}
	}
	if at := ev.Time(); !at.IsZero() {
		s.Clock = at
	}
	s = s.expireStatus(s.Clock)

	switch e := ev.(type) {
	case KeyEvent:
		return handleKey(s, e.Key, t)

	case ClickEvent:
		if s.Mode != ModeNormal {
			return s, Effect{}
		}
		if e.Panel == proctable.PanelGPU && !s.GPUAvailable {
			return s, Effect{}
		}
		s.Focus = e.Panel
		rows := t.For(e.Panel)
		if e.Row >= 0 && e.Row < len(rows) {
			s = s.selectIndex(t, e.Row)
		}
		return s, Effect{}

	case ScrollEvent:
		if s.Mode != ModeNormal || e.Delta == 0 {
			return s, Effect{}
		}
		return s.move(t, e.Delta*ScrollStep), Effect{}

	case SignalResultEvent:
		return s.withStatus(control.StatusText(e.PID, e.Kind, e.Err)), Effect{}
	}

	return s, Effect{}
}

func handleKey(s State, key string, t Tables) (State, Effect) {
	switch s.Mode {
	case ModeHelp:
		if key == KeyQuitAlt {
			return s, Effect{Kind: EffectQuit}
		}
		s.Mode = ModeNormal
		return s, Effect{}

	case ModeConfirm:
		return handleConfirmKey(s, key)
	}
	return handleNormalKey(s, key, t)
}
