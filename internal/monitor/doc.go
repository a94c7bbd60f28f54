// Package monitor implements the interactive nvglance dashboard.
//
// The dashboard shows host identity, CPU, memory, disk, network and sensor
// panels, one card per GPU, and two process tables: every host process and
// the processes holding GPU memory.
//
// # Architecture
//
// The package uses the Bubble Tea framework, which follows The Elm Architecture
// (Model-Update-View pattern), with input handling split out into a pure
// state machine:
//
//   - State: mode, focus, per-panel sort and selection, toggles, status line
//   - Transition: maps (State, Event, Tables) to a new State and an Effect
//   - Model: runs Transition for every key, mouse and signal-result message,
//     performs the returned Effect and renders
//
// Effects are quit, set-interval (forwarded to the scheduler) and signal
// (sent through a control.Controller in a tea.Cmd so the input loop never
// blocks). The outcome of a signal comes back as a SignalResultEvent and is
// shown for StatusTTL.
//
// # Message Flow
//
//  1. The scheduler publishes a Snapshot on its latest-wins channel
//  2. waitForSnapshot delivers it as snapshotMsg
//  3. Both process tables are rebuilt and selections re-located by PID
//  4. View() re-renders; graphs read the history store through views
//
// # Modes
//
//	Normal   - Dashboard keys (see keybindings.go)
//	Help     - Scrollable key reference; any key closes it
//	Confirm  - y/Enter sends the pending signal, n/Esc cancels
package monitor
