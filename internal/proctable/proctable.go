package proctable

import (
	"cmp"
	"sort"
	"strings"

	"github.com/rileyhilliard/nvglance/internal/metrics"
)

// Column is a sortable process table column.
type Column int

const (
	ColumnPID Column = iota
	ColumnName
	ColumnUser
	ColumnCPU
	ColumnMem
	ColumnGPUMem
)

// String returns the column header.
func (c Column) String() string {
	switch c {
	case ColumnPID:
		return "PID"
	case ColumnName:
		return "Name"
	case ColumnUser:
		return "User"
	case ColumnCPU:
		return "CPU%"
	case ColumnMem:
		return "Mem%"
	case ColumnGPUMem:
		return "GPU Mem"
	default:
		return "?"
	}
}

// ColumnForDigit maps the sort keys 1..6 to columns.
func ColumnForDigit(d int) (Column, bool) {
	if d < 1 || d > 6 {
		return 0, false
	}
	return Column(d - 1), true
}

// Panel selects which process set a table shows.
type Panel int

const (
	PanelHost Panel = iota
	PanelGPU
)

func (p Panel) String() string {
	if p == PanelGPU {
		return "gpu"
	}
	return "host"
}

// Show-all off hides processes at or below these thresholds.
const (
	minCPUPercent = 0.0
	minMemPercent = 0.1
)

// Options controls Build.
type Options struct {
	Panel      Panel
	Column     Column
	Descending bool
	// ShowAll disables the idle-process filter on the host panel.
	ShowAll bool
	// Filter is a case-insensitive substring matched against name, user
	// and command. Empty matches everything.
	Filter string
}

// Row is one display row.
type Row struct {
	metrics.Process
	// Rank is the row's position in the sorted table.
	Rank int
	// GPUMemoryBytes is the total across devices; valid only when HasGPU.
	GPUMemoryBytes uint64
	HasGPU         bool
	Selected       bool
}

// Build filters and sorts procs. The input slice is not modified.
//
// The panel filter runs first, then the idle filter (host panel only) and
// the text filter, then the sort. Ties always break by ascending PID, so
// the order is total and flipping Descending twice restores it.
func Build(procs []metrics.Process, opts Options) []Row {
	needle := strings.ToLower(strings.TrimSpace(opts.Filter))

	rows := make([]Row, 0, len(procs))
	for _, p := range procs {
		used, onGPU := p.GPUMemoryTotal()
		if opts.Panel == PanelGPU && !onGPU {
			continue
		}
		if opts.Panel == PanelHost && !opts.ShowAll && !active(p) {
			continue
		}
		if needle != "" && !matches(p, needle) {
			continue
		}
		rows = append(rows, Row{Process: p, GPUMemoryBytes: used, HasGPU: onGPU})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return less(rows[i], rows[j], opts.Column, opts.Descending)
	})
	for i := range rows {
		rows[i].Rank = i
	}
	return rows
}

func active(p metrics.Process) bool {
	return p.CPUPercent > minCPUPercent || p.MemPercent > minMemPercent
}

func matches(p metrics.Process, needle string) bool {
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.User), needle) ||
		strings.Contains(strings.ToLower(p.Command), needle)
}

// less orders a before b. For GPU memory, rows without GPU data sort last
// in either direction.
func less(a, b Row, col Column, desc bool) bool {
	if col == ColumnGPUMem && a.HasGPU != b.HasGPU {
		return a.HasGPU
	}

	c := compare(a, b, col)
	if c == 0 {
		return a.PID < b.PID
	}
	if desc {
		return c > 0
	}
	return c < 0
}

func compare(a, b Row, col Column) int {
	switch col {
	case ColumnPID:
		return cmp.Compare(a.PID, b.PID)
	case ColumnName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case ColumnUser:
		return strings.Compare(a.User, b.User)
	case ColumnCPU:
		return cmp.Compare(a.CPUPercent, b.CPUPercent)
	case ColumnMem:
		return cmp.Compare(a.MemPercent, b.MemPercent)
	case ColumnGPUMem:
		return cmp.Compare(a.GPUMemoryBytes, b.GPUMemoryBytes)
	}
	return 0
}
