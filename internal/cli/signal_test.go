package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/nvglance/internal/control"
	"github.com/rileyhilliard/nvglance/internal/errors"
)

type recordingController struct {
	err   error
	pids  []int32
	kinds []control.Kind
}

func (c *recordingController) Signal(_ context.Context, pid int32, kind control.Kind) error {
	c.pids = append(c.pids, pid)
	c.kinds = append(c.kinds, kind)
	return c.err
}

func plainOutput(t *testing.T) {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() { lipgloss.SetColorProfile(termenv.ANSI) })
}

func TestSignalCommand(t *testing.T) {
	tests := []struct {
		name      string
		pid       string
		signal    string
		yes       bool
		answer    bool
		ctrlErr   error
		wantErr   bool
		wantSent  []control.Kind
		wantOut   string
		wantAsked string
	}{
		{
			name:      "confirmed terminate",
			pid:       "1234",
			signal:    "term",
			answer:    true,
			wantSent:  []control.Kind{control.Terminate},
			wantOut:   "✓ Sent SIGTERM to PID 1234\n",
			wantAsked: "Send SIGTERM to python (PID 1234)?",
		},
		{
			name:      "declined",
			pid:       "1234",
			signal:    "kill",
			answer:    false,
			wantOut:   "⊘ Signal cancelled\n",
			wantAsked: "Send SIGKILL to python (PID 1234)?",
		},
		{
			name:     "yes skips prompt",
			pid:      "42",
			signal:   "SIGINT",
			yes:      true,
			wantSent: []control.Kind{control.Interrupt},
			wantOut:  "✓ Sent SIGINT to PID 42\n",
		},
		{
			name:     "not found",
			pid:      "1234",
			signal:   "kill",
			yes:      true,
			ctrlErr:  errors.NewControl(errors.ControlNotFound, 1234, "SIGKILL", nil),
			wantErr:  true,
			wantSent: []control.Kind{control.Kill},
			wantOut:  "✗ Process 1234 not found\n",
		},
		{
			name:    "bad pid",
			pid:     "abc",
			signal:  "term",
			wantErr: true,
		},
		{
			name:    "zero pid",
			pid:     "0",
			signal:  "term",
			wantErr: true,
		},
		{
			name:    "unknown signal",
			pid:     "1",
			signal:  "hup",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plainOutput(t)
			var out bytes.Buffer
			var asked string
			ctrl := &recordingController{err: tt.ctrlErr}

			err := signalCommand(context.Background(), signalOptions{
				PID:     tt.pid,
				Signal:  tt.signal,
				Yes:     tt.yes,
				Out:     &out,
				Control: ctrl,
				Confirm: func(q string) (bool, error) {
					asked = q
					return tt.answer, nil
				},
				Lookup: func(context.Context, int32) string { return "python" },
			})

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantSent, ctrl.kinds)
			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantAsked, asked)
		})
	}
}

func TestSignalCommand_ControlErrorIsTyped(t *testing.T) {
	plainOutput(t)
	ctrl := &recordingController{err: errors.NewControl(errors.ControlPermissionDenied, 1, "SIGTERM", nil)}

	err := signalCommand(context.Background(), signalOptions{
		PID: "1", Signal: "term", Yes: true, Out: &bytes.Buffer{}, Control: ctrl,
	})
	assert.ErrorIs(t, err, errors.ErrPermissionDenied)
}

func TestSignalCommand_UnknownNameFallsBackToPID(t *testing.T) {
	var asked string
	err := signalCommand(context.Background(), signalOptions{
		PID: "77", Signal: "term", Out: &bytes.Buffer{}, Control: &recordingController{},
		Confirm: func(q string) (bool, error) { asked = q; return false, nil },
		Lookup:  func(context.Context, int32) string { return "" },
	})
	require.NoError(t, err)
	assert.Equal(t, "Send SIGTERM to PID 77?", asked)
}
