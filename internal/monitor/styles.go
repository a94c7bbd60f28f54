package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard color palette
const (
	ColorSurfaceBg = lipgloss.Color("#101014")
	ColorBorder    = lipgloss.Color("#33334D")
	ColorFocus     = lipgloss.Color("#76B900")

	// Semantic colors for metrics
	ColorHealthy  = lipgloss.Color("#5FD700")
	ColorWarning  = lipgloss.Color("#FFAF00")
	ColorCritical = lipgloss.Color("#FF005F")

	// Text colors
	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4C8")
	ColorTextMuted     = lipgloss.Color("#6C6C84")

	ColorAccent = lipgloss.Color("#76B900")
	ColorGraph  = lipgloss.Color("#00D7FF")
)

// Thresholds for metric severity levels
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	PanelFocusedStyle = PanelStyle.
				BorderForeground(ColorFocus)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// StaleStyle marks values carried over from an earlier tick.
	StaleStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Italic(true)

	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorTextSecondary).
				Bold(true)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(ColorSurfaceBg).
				Background(ColorFocus)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	DialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorCritical).
			Padding(1, 3)
)

// MetricColor returns the severity color for a percentage: green below 70,
// amber below 90, red above.
func MetricColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalThreshold:
		return ColorCritical
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// MetricStyle returns a style with the severity color for percent.
func MetricStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColor(percent))
}

// Bar renders a segmented usage bar of width cells.
func Bar(width int, percent float64) string {
	if width < 1 {
		width = 1
	}
	percent = clampPercent(percent)
	filled := int(percent / 100 * float64(width))
	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
	return MetricStyle(percent).Render(bar)
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// SectionHeader renders a title rule with a right-aligned value:
// ╭─ Title ───────── value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}
	fill := width - (3 + lipgloss.Width(title) + 1) - (1 + lipgloss.Width(value) + 2)
	if fill < 1 {
		fill = 1
	}

	border := lipgloss.NewStyle().Foreground(ColorBorder)
	return border.Render("╭─ ") +
		TitleStyle.Render(title) +
		border.Render(" "+strings.Repeat("─", fill)+" ") +
		lipgloss.NewStyle().Foreground(ColorGraph).Bold(true).Render(value) +
		border.Render(" ╮")
}

// padRight pads s with spaces to width display cells, truncating when
// longer.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w > width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-w)
}

// padLeft right-aligns s in width cells.
func padLeft(s string, width int) string {
	w := lipgloss.Width(s)
	if w > width {
		return truncate(s, width)
	}
	return strings.Repeat(" ", width-w) + s
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
