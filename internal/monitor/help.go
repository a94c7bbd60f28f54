package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpBinding represents a single keyboard shortcut entry.
type HelpBinding struct {
	Key  string
	Desc string
}

// helpBindings defines all keyboard shortcuts shown in the help overlay.
var helpBindings = []HelpBinding{
	{Key: "q / Esc / Ctrl+C", Desc: "Quit"},
	{Key: "? / F1", Desc: "Show this help"},
	{Key: "Tab", Desc: "Switch between host and GPU processes"},
	{Key: "1 .. 6", Desc: "Sort by PID, Name, User, CPU%, Mem%, GPU Mem"},
	{Key: "r", Desc: "Reverse sort direction"},
	{Key: "a", Desc: "Show all processes"},
	{Key: "g", Desc: "Toggle graphs"},
	{Key: "c", Desc: "Toggle compact mode"},
	{Key: "+ / -", Desc: "Slower / faster refresh"},
	{Key: "up / k", Desc: "Select previous process"},
	{Key: "down / j", Desc: "Select next process"},
	{Key: "PgUp / PgDn", Desc: fmt.Sprintf("Move by %d rows", PageStep)},
	{Key: "Home / End", Desc: "First / last process"},
	{Key: "Del / Ctrl+T", Desc: "Terminate selected process"},
	{Key: "Ctrl+K", Desc: "Kill selected process"},
	{Key: "i", Desc: "Interrupt selected process"},
	{Key: "/", Desc: "Clear process filter"},
	{Key: "Mouse", Desc: "Click to select, wheel to scroll"},
}

var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Width(18)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)
)

// helpContent is the scrollable body of the help overlay.
func helpContent() string {
	lines := make([]string, 0, len(helpBindings))
	for _, b := range helpBindings {
		lines = append(lines, helpKeyStyle.Render(b.Key)+helpDescStyle.Render(b.Desc))
	}
	return strings.Join(lines, "\n")
}

// helpSize returns the viewport size for a terminal of w x h, leaving room
// for the box border, padding, title and hint.
func helpSize(w, h int) (int, int) {
	vw := w - 8
	if vw > 64 {
		vw = 64
	}
	vh := h - 10
	if vh > len(helpBindings) {
		vh = len(helpBindings)
	}
	if vw < 20 {
		vw = 20
	}
	if vh < 3 {
		vh = 3
	}
	return vw, vh
}

// renderHelpOverlay renders a centered help box with keyboard shortcuts.
func (m Model) renderHelpOverlay() string {
	body := helpContent()
	if m.helpReady {
		body = m.help.View()
	}

	box := helpBoxStyle.Render(strings.Join([]string{
		helpTitleStyle.Render("Keyboard Shortcuts"),
		"",
		body,
		"",
		LabelStyle.Render("Press any key to close"),
	}, "\n"))

	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// renderConfirmDialog asks before a signal is sent.
func (m Model) renderConfirmDialog() string {
	c := m.state.Confirm
	name := c.Name
	if name == "" {
		name = "?"
	}
	box := DialogStyle.Render(strings.Join([]string{
		StatusStyle.Render(fmt.Sprintf("Send %s to %s (PID %d)?", c.Kind, name, c.PID)),
		"",
		LabelStyle.Render("y / Enter confirm    n / Esc cancel"),
	}, "\n"))

	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
