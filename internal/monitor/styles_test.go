package monitor

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestMetricColor(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		expect  lipgloss.Color
	}{
		{"healthy low", 0.0, ColorHealthy},
		{"healthy near threshold", 69.9, ColorHealthy},
		{"warning at threshold", 70.0, ColorWarning},
		{"warning near critical", 89.9, ColorWarning},
		{"critical at threshold", 90.0, ColorCritical},
		{"critical max", 100.0, ColorCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, MetricColor(tt.percent))
		})
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		percent float64
		want    string
	}{
		{"half", 4, 50, "▰▰▱▱"},
		{"empty", 3, 0, "▱▱▱"},
		{"clamped high", 2, 150, "▰▰"},
		{"clamped low", 2, -10, "▱▱"},
		{"minimum width", 0, 100, "▰"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripANSI(Bar(tt.width, tt.percent)))
		})
	}
}

func TestSectionHeader(t *testing.T) {
	h := SectionHeader("CPU", "42%", 30)
	assert.Equal(t, 30, lipgloss.Width(h))
	assert.Equal(t, "╭─ CPU ───────────────── 42% ╮", stripANSI(h))
}

func TestPadding(t *testing.T) {
	assert.Equal(t, "ab  ", padRight("ab", 4))
	assert.Equal(t, "  ab", padLeft("ab", 4))
	assert.Equal(t, "abc…", padRight("abcdefgh", 4))
	assert.Equal(t, "…", truncate("abc", 1))
	assert.Equal(t, "", truncate("abc", 0))
}
