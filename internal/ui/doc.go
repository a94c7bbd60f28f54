// Package ui provides the styled line output used by nvglance's
// non-interactive subcommands.
//
// # Color Scheme
//
// Colors are defined as ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Successful operations
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Cancelled actions
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text
//
// Use DisableColors() to switch to monochrome output (for --no-color). It
// changes the global lipgloss profile, so it affects the dashboard too.
//
// # Symbols
//
//	SymbolSuccess  (checkmark)  - Action completed
//	SymbolFail     (X)          - Action failed
//	SymbolSkipped  (slashed)    - Action cancelled
//
// # Status Lines
//
//	ui.Success(os.Stdout, "Sent %s to PID %d", "SIGTERM", 1234)
//	ui.Fail(os.Stderr, "Process %d not found", 1234)
package ui
