package proctable

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/nvglance/internal/metrics"
)

func rowsOf(pids ...int32) []Row {
	procs := make([]metrics.Process, len(pids))
	for i, pid := range pids {
		procs[i] = metrics.Process{PID: pid, CPUPercent: 1}
	}
	return Build(procs, Options{Column: ColumnPID})
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name  string
		index int
		n     int
		want  int
	}{
		{"in range", 2, 5, 2},
		{"negative", -3, 5, 0},
		{"past end", 9, 5, 4},
		{"empty", 3, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.index, tt.n))
		})
	}
}

func TestSelection_FollowsPID(t *testing.T) {
	sel := At(rowsOf(1, 2, 3, 4), 2)
	assert.Equal(t, int32(3), sel.PID)

	// PID 3 moves to the front after a re-sort.
	reordered := Build([]metrics.Process{
		{PID: 3, CPUPercent: 90}, {PID: 1, CPUPercent: 1}, {PID: 2, CPUPercent: 2}, {PID: 4, CPUPercent: 4},
	}, Options{Column: ColumnCPU, Descending: true})

	got := sel.Resolve(reordered)
	assert.Equal(t, 0, got.Index)
	assert.Equal(t, int32(3), got.PID)
}

func TestSelection_VanishedPIDClamps(t *testing.T) {
	tests := []struct {
		name      string
		rows      []Row
		sel       Selection
		wantIndex int
		wantPID   int32
		wantNone  bool
	}{
		{
			name:      "falls back to same index",
			rows:      rowsOf(1, 2, 4),
			sel:       Selection{Index: 2, PID: 3, Valid: true},
			wantIndex: 2,
			wantPID:   4,
		},
		{
			name:      "last row vanished",
			rows:      rowsOf(1, 2),
			sel:       Selection{Index: 2, PID: 3, Valid: true},
			wantIndex: 1,
			wantPID:   2,
		},
		{
			name:      "table emptied",
			rows:      nil,
			sel:       Selection{Index: 5, PID: 3, Valid: true},
			wantIndex: 0,
			wantPID:   0,
			wantNone:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sel.Resolve(tt.rows)
			assert.Equal(t, tt.wantIndex, got.Index)
			assert.Equal(t, tt.wantPID, got.PID)
			assert.Equal(t, !tt.wantNone, got.Valid)
		})
	}
}

func TestSelection_Move(t *testing.T) {
	rows := rowsOf(1, 2, 3, 4, 5)
	sel := At(rows, 0)

	sel = sel.Move(rows, 2)
	assert.Equal(t, int32(3), sel.PID)

	sel = sel.Move(rows, 10)
	assert.Equal(t, 4, sel.Index)

	sel = sel.Move(rows, -100)
	assert.Equal(t, 0, sel.Index)
}

func TestMark(t *testing.T) {
	rows := rowsOf(1, 2, 3)
	marked := Mark(rows, Selection{Index: 1, PID: 2, Valid: true})

	assert.False(t, marked[0].Selected)
	assert.True(t, marked[1].Selected)
	assert.False(t, rows[1].Selected, "input rows untouched")

	for _, r := range Mark(rows, Selection{}) {
		assert.False(t, r.Selected, "empty selection marks nothing")
	}
}

func TestSelection_FollowsPIDZero(t *testing.T) {
	// kernel_task is PID 0 on macOS.
	sel := At(rowsOf(0, 1, 2), 0)
	assert.Equal(t, Selection{Index: 0, PID: 0, Valid: true}, sel)

	reordered := Build([]metrics.Process{
		{PID: 1, CPUPercent: 90}, {PID: 2, CPUPercent: 50}, {PID: 0, CPUPercent: 10},
	}, Options{Column: ColumnCPU, Descending: true})

	got := sel.Resolve(reordered)
	assert.Equal(t, Selection{Index: 2, PID: 0, Valid: true}, got)
}

func TestIndexOf(t *testing.T) {
	rows := rowsOf(7, 8)
	assert.Equal(t, 1, IndexOf(rows, 8))
	assert.Equal(t, -1, IndexOf(rows, 9))
}
