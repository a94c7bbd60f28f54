package ui

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestStatusLines(t *testing.T) {
	DisableColors()
	t.Cleanup(func() { lipgloss.SetColorProfile(termenv.ANSI) })

	tests := []struct {
		name  string
		write func(*bytes.Buffer)
		want  string
	}{
		{"success", func(b *bytes.Buffer) { Success(b, "Sent %s to PID %d", "SIGTERM", 42) }, "✓ Sent SIGTERM to PID 42\n"},
		{"fail", func(b *bytes.Buffer) { Fail(b, "Process %d not found", 42) }, "✗ Process 42 not found\n"},
		{"skipped", func(b *bytes.Buffer) { Skipped(b, "Signal cancelled") }, "⊘ Signal cancelled\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.write(&buf)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestDisableColors(t *testing.T) {
	DisableColors()
	t.Cleanup(func() { lipgloss.SetColorProfile(termenv.ANSI) })

	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())
	assert.Equal(t, "plain", SuccessStyle().Render("plain"))
}
