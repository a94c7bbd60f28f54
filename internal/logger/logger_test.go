package logger

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name        string
		debug       bool
		expectDebug bool
	}{
		{"debug enabled", true, true},
		{"debug disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Options{Output: &buf, Debug: tt.debug, Component: "scheduler"})

			l.Debug("tick took %dms", 12)
			l.Info("backend %s selected", "nvml")

			out := buf.String()
			assert.Contains(t, out, "backend nvml selected")
			assert.Contains(t, out, "component=scheduler")
			if tt.expectDebug {
				assert.Contains(t, out, "tick took 12ms")
			} else {
				assert.NotContains(t, out, "tick took 12ms")
			}
		})
	}
}

func TestNew_WarnAndError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf})

	l.Warn("gpu read failed: %s", "busy")
	l.Error("signal failed")

	assert.Contains(t, buf.String(), "WRN")
	assert.Contains(t, buf.String(), "gpu read failed: busy")
	assert.Contains(t, buf.String(), "ERR")
}

func TestNew_NilOutputDiscards(t *testing.T) {
	l := New(Options{})
	assert.NotPanics(t, func() {
		l.Info("nothing to see")
	})
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvglance.log")

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	l := New(Options{Output: f})
	l.Info("hello")
	require.NoError(t, f.Sync())

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestNoop(t *testing.T) {
	l := Noop()
	assert.NotPanics(t, func() {
		l.Debug("a")
		l.Info("b")
		l.Warn("c")
		l.Error("d")
	})
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %d", 1)
	l.Info("info")
	l.Warn("warn")

	require.Len(t, l.Snapshot(), 3)
	assert.Equal(t, "debug 1", l.Messages[0].Message)
	assert.True(t, l.HasLevel("warn"))
	assert.False(t, l.HasLevel("error"))

	l.Clear()
	assert.Empty(t, l.Snapshot())
}

func TestDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	buf := NewBufferLogger()
	SetDefault(buf)
	Default().Info("routed")

	assert.True(t, buf.HasLevel("info"))
}
