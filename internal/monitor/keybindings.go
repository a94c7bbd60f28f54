package monitor

import (
	"strconv"

	"github.com/rileyhilliard/nvglance/internal/control"
	"github.com/rileyhilliard/nvglance/internal/proctable"
	"github.com/rileyhilliard/nvglance/internal/scheduler"
)

// Key bindings as constants for consistency. Values are tea.KeyMsg.String()
// forms.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyEscape      = "esc"
	KeyHelp        = "?"
	KeyHelpAlt     = "f1"
	KeySwitchPanel = "tab"
	KeyReverse     = "r"
	KeyShowAll     = "a"
	KeyGraphs      = "g"
	KeyCompact     = "c"
	KeyFaster      = "-"
	KeySlower      = "+"
	KeySlowerAlt   = "="
	KeyUp          = "up"
	KeyUpK         = "k"
	KeyDown        = "down"
	KeyDownJ       = "j"
	KeyPageUp      = "pgup"
	KeyPageDown    = "pgdown"
	KeyHome        = "home"
	KeyEnd         = "end"
	KeyTerminate   = "delete"
	KeyTerminateT  = "ctrl+t"
	KeyKill        = "ctrl+k"
	KeyInterrupt   = "i"
	KeyClearFilter = "/"
	KeyConfirm     = "y"
	KeyConfirmAlt  = "Y"
	KeyEnter       = "enter"
	KeyCancel      = "n"
	KeyCancelAlt   = "N"
)

// Movement steps.
const (
	PageStep   = 10
	ScrollStep = 3
)

// handleNormalKey applies one key in Normal mode.
func handleNormalKey(s State, key string, t Tables) (State, Effect) {
	switch key {
	case KeyQuit, KeyQuitAlt, KeyEscape:
		return s, Effect{Kind: EffectQuit}

	case KeyHelp, KeyHelpAlt:
		s.Mode = ModeHelp
		return s, Effect{}

	case KeySwitchPanel:
		if s.GPUAvailable && s.Focus == proctable.PanelHost {
			s.Focus = proctable.PanelGPU
		} else {
			s.Focus = proctable.PanelHost
		}
		return s, Effect{}

	case "1", "2", "3", "4", "5", "6":
		d, _ := strconv.Atoi(key)
		col, _ := proctable.ColumnForDigit(d)
		p := s.panel()
		if p.Column == col {
			p.Descending = !p.Descending
		} else {
			p.Column = col
			p.Descending = true
		}
		s.setPanel(p)
		return s, Effect{}

	case KeyReverse:
		p := s.panel()
		p.Descending = !p.Descending
		s.setPanel(p)
		return s, Effect{}

	case KeyShowAll:
		s.ShowAll = !s.ShowAll
		return s, Effect{}

	case KeyGraphs:
		s.Graphs = !s.Graphs
		return s, Effect{}

	case KeyCompact:
		s.Compact = !s.Compact
		return s, Effect{}

	case KeyFaster:
		return s.adjustInterval(-scheduler.IntervalStep)

	case KeySlower, KeySlowerAlt:
		return s.adjustInterval(scheduler.IntervalStep)

	case KeyUp, KeyUpK:
		return s.move(t, -1), Effect{}
	case KeyDown, KeyDownJ:
		return s.move(t, 1), Effect{}
	case KeyPageUp:
		return s.move(t, -PageStep), Effect{}
	case KeyPageDown:
		return s.move(t, PageStep), Effect{}
	case KeyHome:
		return s.selectIndex(t, 0), Effect{}
	case KeyEnd:
		return s.selectIndex(t, len(t.For(s.Focus))-1), Effect{}

	case KeyTerminate, KeyTerminateT:
		return s.confirm(t, control.Terminate), Effect{}
	case KeyKill:
		return s.confirm(t, control.Kill), Effect{}
	case KeyInterrupt:
		return s.confirm(t, control.Interrupt), Effect{}

	case KeyClearFilter:
		if s.Filter != "" {
			s.Filter = ""
			s = s.withStatus("Filter cleared")
		}
		return s, Effect{}
	}

	return s, Effect{}
}

// handleConfirmKey resolves the pending confirmation.
func handleConfirmKey(s State, key string) (State, Effect) {
	switch key {
	case KeyConfirm, KeyConfirmAlt, KeyEnter:
		c := s.Confirm
		s.Mode = ModeNormal
		s.Confirm = Confirm{}
		return s, Effect{Kind: EffectSignal, PID: c.PID, Signal: c.Kind}

	case KeyCancel, KeyCancelAlt, KeyEscape:
		s.Mode = ModeNormal
		s.Confirm = Confirm{}
		return s.withStatus("Signal cancelled"), Effect{}

	case KeyQuitAlt:
		s.Mode = ModeNormal
		s.Confirm = Confirm{}
		return s, Effect{Kind: EffectQuit}
	}
	return s, Effect{}
}
