package proctable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/nvglance/internal/metrics"
)

func sample() []metrics.Process {
	return []metrics.Process{
		{PID: 40, Name: "bash", User: "root", CPUPercent: 10, MemPercent: 0.5},
		{PID: 10, Name: "Python", User: "alice", CPUPercent: 90, MemPercent: 12, GPUMemory: map[int]uint64{0: 2000}},
		{PID: 30, Name: "python", User: "bob", CPUPercent: 10, MemPercent: 3, GPUMemory: map[int]uint64{0: 500, 1: 500}},
		{PID: 20, Name: "idle", User: "root", CPUPercent: 0, MemPercent: 0.05},
		{PID: 50, Name: "Xorg", User: "root", CPUPercent: 0, MemPercent: 0, GPUMemory: map[int]uint64{0: 0}},
	}
}

func pids(rows []Row) []int32 {
	out := make([]int32, len(rows))
	for i, r := range rows {
		out[i] = r.PID
	}
	return out
}

func TestColumnForDigit(t *testing.T) {
	tests := []struct {
		digit int
		want  Column
		ok    bool
	}{
		{1, ColumnPID, true},
		{2, ColumnName, true},
		{3, ColumnUser, true},
		{4, ColumnCPU, true},
		{5, ColumnMem, true},
		{6, ColumnGPUMem, true},
		{0, 0, false},
		{7, 0, false},
	}
	for _, tt := range tests {
		got, ok := ColumnForDigit(tt.digit)
		assert.Equal(t, tt.ok, ok, "digit %d", tt.digit)
		if ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestColumn_String(t *testing.T) {
	assert.Equal(t, "CPU%", ColumnCPU.String())
	assert.Equal(t, "GPU Mem", ColumnGPUMem.String())
	assert.Equal(t, "?", Column(99).String())
}

func TestBuild_Sort(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		desc bool
		want []int32
	}{
		{"cpu descending with pid tie-break", ColumnCPU, true, []int32{10, 30, 40, 20, 50}},
		{"cpu ascending with pid tie-break", ColumnCPU, false, []int32{20, 50, 30, 40, 10}},
		{"pid ascending", ColumnPID, false, []int32{10, 20, 30, 40, 50}},
		{"pid descending", ColumnPID, true, []int32{50, 40, 30, 20, 10}},
		{"name is case-insensitive", ColumnName, false, []int32{40, 20, 10, 30, 50}},
		{"user ascending", ColumnUser, false, []int32{10, 30, 20, 40, 50}},
		{"mem descending", ColumnMem, true, []int32{10, 30, 40, 20, 50}},
		{"gpu mem descending", ColumnGPUMem, true, []int32{10, 30, 50, 20, 40}},
		{"gpu mem ascending keeps no-data last", ColumnGPUMem, false, []int32{50, 30, 10, 20, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Build(sample(), Options{Column: tt.col, Descending: tt.desc, ShowAll: true})
			assert.Equal(t, tt.want, pids(rows))
			for i, r := range rows {
				assert.Equal(t, i, r.Rank)
			}
		})
	}
}

func TestBuild_IsPermutationOfFilteredInput(t *testing.T) {
	procs := sample()
	for col := ColumnPID; col <= ColumnGPUMem; col++ {
		for _, desc := range []bool{false, true} {
			for _, showAll := range []bool{false, true} {
				rows := Build(procs, Options{Column: col, Descending: desc, ShowAll: showAll})

				var want []int32
				for _, p := range procs {
					if showAll || p.CPUPercent > 0 || p.MemPercent > 0.1 {
						want = append(want, p.PID)
					}
				}
				assert.ElementsMatch(t, want, pids(rows), "col=%s desc=%v all=%v", col, desc, showAll)
			}
		}
	}
}

func TestBuild_DoubleToggleRestoresOrder(t *testing.T) {
	for col := ColumnPID; col <= ColumnGPUMem; col++ {
		opts := Options{Column: col, Descending: true, ShowAll: true}
		before := pids(Build(sample(), opts))

		opts.Descending = !opts.Descending
		Build(sample(), opts)
		opts.Descending = !opts.Descending

		assert.Equal(t, before, pids(Build(sample(), opts)), col.String())
	}
}

func TestBuild_ShowAllFilter(t *testing.T) {
	filtered := Build(sample(), Options{Column: ColumnPID})
	assert.Equal(t, []int32{10, 30, 40}, pids(filtered), "idle processes hidden by default")

	all := Build(sample(), Options{Column: ColumnPID, ShowAll: true})
	assert.Len(t, all, 5)
}

func TestBuild_GPUPanel(t *testing.T) {
	rows := Build(sample(), Options{Panel: PanelGPU, Column: ColumnGPUMem, Descending: true})

	assert.Equal(t, []int32{10, 30, 50}, pids(rows), "only GPU processes, idle ones included")
	assert.Equal(t, uint64(1000), rows[1].GPUMemoryBytes)
	for _, r := range rows {
		assert.True(t, r.HasGPU)
	}
}

func TestBuild_PanelFilterBeforeSort(t *testing.T) {
	rows := Build(sample(), Options{Panel: PanelGPU, Column: ColumnCPU, Descending: true})
	require.Len(t, rows, 3)
	assert.Equal(t, 0, rows[0].Rank)
	assert.Equal(t, int32(10), rows[0].PID)
	assert.Equal(t, 2, rows[2].Rank, "ranks are dense over the panel's rows")
}

func TestBuild_TextFilter(t *testing.T) {
	tests := []struct {
		filter string
		want   []int32
	}{
		{"PYTHON", []int32{10, 30}},
		{"root", []int32{20, 40, 50}},
		{"  xorg ", []int32{50}},
		{"nothing", []int32{}},
		{"", []int32{10, 20, 30, 40, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			rows := Build(sample(), Options{Column: ColumnPID, ShowAll: true, Filter: tt.filter})
			assert.Equal(t, tt.want, pids(rows))
		})
	}
}

func TestBuild_DoesNotModifyInput(t *testing.T) {
	procs := sample()
	Build(procs, Options{Column: ColumnPID, ShowAll: true})
	assert.Equal(t, int32(40), procs[0].PID)
}

func TestBuild_Empty(t *testing.T) {
	assert.Empty(t, Build(nil, Options{}))
}
