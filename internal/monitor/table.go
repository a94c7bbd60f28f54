package monitor

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/nvglance/internal/metrics"
	"github.com/rileyhilliard/nvglance/internal/proctable"
)

// minTableRows is the smallest number of process rows a table shows.
const minTableRows = 3

// tableRegion locates one process table on screen.
type tableRegion struct {
	panel proctable.Panel
	// title is the y of the table's title line; rows start two lines below.
	title   int
	offset  int
	visible int
}

func (r tableRegion) firstRow() int {
	return r.title + 2
}

// tableRegions splits the space below the top section between the tables.
// The GPU table gets about a third when present.
func (m Model) tableRegions(topHeight int) []tableRegion {
	avail := m.termHeight() - topHeight - 1
	panels := []proctable.Panel{proctable.PanelHost}
	if m.state.GPUAvailable {
		panels = append(panels, proctable.PanelGPU)
	}

	rows := avail - 2*len(panels)
	heights := make([]int, len(panels))
	if len(panels) == 1 {
		heights[0] = rows
	} else {
		heights[1] = rows / 3
		heights[0] = rows - heights[1]
	}

	regions := make([]tableRegion, len(panels))
	y := topHeight
	for i, p := range panels {
		visible := heights[i]
		if visible < minTableRows {
			visible = minTableRows
		}
		regions[i] = tableRegion{
			panel:   p,
			title:   y,
			offset:  scrollOffset(m.state.Selected(p).Index, visible, len(m.tables.For(p))),
			visible: visible,
		}
		y += 2 + visible
	}
	return regions
}

// scrollOffset keeps the selected row inside a window of visible rows.
func scrollOffset(selected, visible, total int) int {
	if total <= visible || selected < visible {
		return 0
	}
	off := selected - visible + 1
	if off > total-visible {
		off = total - visible
	}
	return off
}

// mouseEvent maps a mouse message to a state event, or nil when it hits
// nothing interactive.
func (m Model) mouseEvent(msg tea.MouseMsg) Event {
	now := m.now()
	if msg.Action != tea.MouseActionPress {
		return nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return ScrollEvent{Delta: -1, At: now}
	case tea.MouseButtonWheelDown:
		return ScrollEvent{Delta: 1, At: now}
	case tea.MouseButtonLeft:
	default:
		return nil
	}

	for _, r := range m.tableRegions(lipgloss.Height(m.renderTop())) {
		if msg.Y < r.title || msg.Y >= r.firstRow()+r.visible {
			continue
		}
		row := -1
		if msg.Y >= r.firstRow() {
			row = r.offset + msg.Y - r.firstRow()
			if row >= len(m.tables.For(r.panel)) {
				row = -1
			}
		}
		return ClickEvent{Panel: r.panel, Row: row, At: now}
	}
	return nil
}

// column describes one rendered table column.
type column struct {
	col   proctable.Column
	title string
	width int
	right bool
	cell  func(r proctable.Row) string
}

func (m Model) columns(p proctable.Panel, w int) []column {
	cols := []column{
		{col: proctable.ColumnPID, title: "PID", width: 7, right: true, cell: func(r proctable.Row) string { return fmt.Sprintf("%d", r.PID) }},
		{col: proctable.ColumnName, title: "Name", width: 18, cell: func(r proctable.Row) string { return r.Name }},
		{col: proctable.ColumnUser, title: "User", width: 10, cell: func(r proctable.Row) string { return r.User }},
		{col: proctable.ColumnCPU, title: "CPU%", width: 6, right: true, cell: func(r proctable.Row) string { return fmt.Sprintf("%.1f", r.CPUPercent) }},
		{col: proctable.ColumnMem, title: "Mem%", width: 6, right: true, cell: func(r proctable.Row) string { return fmt.Sprintf("%.1f", r.MemPercent) }},
		{col: proctable.ColumnGPUMem, title: "GPU Mem", width: 10, right: true, cell: gpuMemCell},
	}
	if p == proctable.PanelGPU {
		cols = append(cols,
			column{col: -1, title: "Type", width: 4, cell: func(r proctable.Row) string { return r.GPUType }},
			column{col: -1, title: "GPU", width: 5, cell: gpuIndexCell},
		)
	}

	used := 0
	for _, c := range cols {
		used += c.width + 1
	}
	if !m.state.Compact && w-used > 12 {
		cols = append(cols, column{col: -1, title: "Command", width: w - used - 1, cell: func(r proctable.Row) string {
			return r.Command
		}})
	}
	return cols
}

func gpuMemCell(r proctable.Row) string {
	if !r.HasGPU {
		return "-"
	}
	return humanize.IBytes(r.GPUMemoryBytes)
}

func gpuIndexCell(r proctable.Row) string {
	idx := make([]int, 0, len(r.GPUMemory))
	for i := range r.GPUMemory {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}

// renderTables renders every table at its region.
func (m Model) renderTables(regions []tableRegion) string {
	blocks := make([]string, 0, len(regions))
	for _, r := range regions {
		blocks = append(blocks, m.renderTable(r))
	}
	return strings.Join(blocks, "\n")
}

func (m Model) renderTable(r tableRegion) string {
	w := m.contentWidth()
	rows := m.tables.For(r.panel)
	ps := m.state.Panels[r.panel]
	cols := m.columns(r.panel, w)

	title := "Processes"
	if r.panel == proctable.PanelGPU {
		title = "GPU Processes"
	}
	if m.state.Focus == r.panel {
		title = "▸ " + title
	}
	value := fmt.Sprintf("%d · by %s %s", len(rows), ps.Column, arrow(ps.Descending))
	lines := []string{SectionHeader(title, value, w) + m.staleMark(metrics.DomainProcesses)}

	var hdr []string
	for _, c := range cols {
		t := c.title
		if c.col == ps.Column {
			t += arrow(ps.Descending)
		}
		hdr = append(hdr, align(t, c.width, c.right))
	}
	lines = append(lines, TableHeaderStyle.Render(" "+strings.Join(hdr, " ")))

	if m.state.Focus == r.panel {
		rows = proctable.Mark(rows, m.state.Selected(r.panel))
	}
	for i := r.offset; i < r.offset+r.visible; i++ {
		if i >= len(rows) {
			lines = append(lines, "")
			continue
		}
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = align(c.cell(rows[i]), c.width, c.right)
		}
		line := " " + strings.Join(cells, " ")
		if rows[i].Selected {
			line = SelectedRowStyle.Render(padRight(line, w))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func align(s string, width int, right bool) string {
	if right {
		return padLeft(s, width)
	}
	return padRight(s, width)
}

func arrow(desc bool) string {
	if desc {
		return "▼"
	}
	return "▲"
}
