package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/nvglance/internal/history"
	"github.com/rileyhilliard/nvglance/internal/metrics"
)

const (
	defaultWidth  = 100
	defaultHeight = 40
	graphHeight   = 3
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	top := m.renderTop()
	tables := m.renderTables(m.tableRegions(lipgloss.Height(top)))
	return lipgloss.JoinVertical(lipgloss.Left, top, tables, m.renderFooter())
}

// renderTop renders everything above the process tables.
func (m Model) renderTop() string {
	parts := []string{m.renderHeader()}
	if m.snap == nil {
		parts = append(parts, MutedStyle.Render("  waiting for first sample..."))
		return strings.Join(parts, "\n")
	}

	w := m.contentWidth()
	if m.LayoutMode() == LayoutWide {
		half := w / 2
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderCPU(half)+" ", m.renderMemory(w-half-1)))
	} else {
		parts = append(parts, m.renderCPU(w), m.renderMemory(w))
	}
	if !m.state.Compact {
		if s := m.renderDisks(w); s != "" {
			parts = append(parts, s)
		}
		parts = append(parts, m.renderNetwork(w))
		if s := m.renderSensors(w); s != "" {
			parts = append(parts, s)
		}
	}
	if m.state.GPUAvailable {
		parts = append(parts, m.renderGPUs(w))
	}
	return strings.Join(parts, "\n")
}

func (m Model) termWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m Model) termHeight() int {
	if m.height <= 0 {
		return defaultHeight
	}
	return m.height
}

func (m Model) contentWidth() int {
	return m.termWidth() - 1
}

func (m Model) graphsOn() bool {
	return m.state.Graphs && m.LayoutMode() != LayoutMinimal
}

// renderHeader renders the title line with host identity and refresh state.
func (m Model) renderHeader() string {
	title := TitleStyle.Render("nvglance")
	if m.snap == nil {
		return HeaderStyle.Render(title)
	}

	h := m.snap.Host
	fields := []string{}
	if h.Hostname != "" {
		fields = append(fields, h.Hostname)
	}
	if sys := strings.TrimSpace(h.Platform + " " + h.Kernel); sys != "" {
		fields = append(fields, sys)
	}
	if h.Uptime > 0 {
		fields = append(fields, "up "+formatUptime(h.Uptime))
	}
	fields = append(fields, "every "+m.state.Interval.String())
	fields = append(fields, m.gpuSummary())
	fields = append(fields, "updated "+m.updatedAgo())

	return HeaderStyle.Render(title + LabelStyle.Render(" │ "+strings.Join(fields, " │ ")))
}

func (m Model) gpuSummary() string {
	g := m.snap.GPU
	if g.Backend == "" || g.Backend == metrics.BackendNone {
		return "no GPU"
	}
	s := g.Backend
	if g.DriverVersion != "" {
		s += " driver " + g.DriverVersion
	}
	if g.APIVersion != "" {
		s += " " + apiLabel(g.Backend) + " " + g.APIVersion
	}
	return s
}

func apiLabel(backend string) string {
	if backend == metrics.BackendApple {
		return "API"
	}
	return "CUDA"
}

func (m Model) updatedAgo() string {
	ago := int(m.state.Clock.Sub(m.snap.Timestamp).Seconds())
	switch {
	case m.state.Clock.IsZero() || ago <= 0:
		return "just now"
	case ago == 1:
		return "1s ago"
	default:
		return fmt.Sprintf("%ds ago", ago)
	}
}

// staleMark returns a marker when d was carried over from a previous tick.
func (m Model) staleMark(d metrics.Domain) string {
	if m.snap != nil && m.snap.Stale.Has(d) {
		return " " + StaleStyle.Render("stale")
	}
	return ""
}

func (m Model) renderCPU(w int) string {
	c := m.snap.CPU
	value := fmt.Sprintf("%.1f%%", c.Percent)
	if c.FrequencyMHz > 0 {
		value += fmt.Sprintf("  %.2f GHz", c.FrequencyMHz/1000)
	}
	value += fmt.Sprintf("  load %.2f %.2f %.2f", c.LoadAvg[0], c.LoadAvg[1], c.LoadAvg[2])

	lines := []string{SectionHeader("CPU", value, w) + m.staleMark(metrics.DomainCPU)}
	lines = append(lines, " "+Bar(w-2, c.Percent))
	if m.graphsOn() {
		data := tail(m.history.View(history.SeriesCPU), (w-2)*2)
		lines = append(lines, indent(BrailleGraph(data, w-2, graphHeight, true, ColorGraph)))
	}
	if !m.state.Compact && len(c.PerCore) > 0 {
		lines = append(lines, m.renderCores(c.PerCore, w-2)...)
	}
	return strings.Join(lines, "\n")
}

// renderCores lays per-core usage out in as many columns as fit.
func (m Model) renderCores(cores []float64, w int) []string {
	const cell = 18
	cols := w / cell
	if cols < 1 {
		cols = 1
	}
	var lines []string
	for i := 0; i < len(cores); i += cols {
		var b strings.Builder
		b.WriteString(" ")
		for j := i; j < i+cols && j < len(cores); j++ {
			label := LabelStyle.Render(padLeft(fmt.Sprintf("%d", j), 3))
			b.WriteString(label + " " + Bar(8, cores[j]) + " " + padLeft(fmt.Sprintf("%.0f%%", cores[j]), 4) + " ")
		}
		lines = append(lines, b.String())
	}
	return lines
}

func (m Model) renderMemory(w int) string {
	mem := m.snap.Memory
	value := fmt.Sprintf("%s / %s", humanize.IBytes(mem.UsedBytes), humanize.IBytes(mem.TotalBytes))
	lines := []string{SectionHeader("Memory", value, w) + m.staleMark(metrics.DomainMemory)}

	label := func(s string) string { return LabelStyle.Render(padRight(s, 5)) }
	barW := w - 14
	if barW < 4 {
		barW = 4
	}
	lines = append(lines, " "+label("RAM")+Bar(barW, mem.Percent())+" "+padLeft(fmt.Sprintf("%.1f%%", mem.Percent()), 6))
	if mem.SwapTotalBytes > 0 {
		lines = append(lines, " "+label("Swap")+Bar(barW, mem.SwapPercent())+" "+padLeft(fmt.Sprintf("%.1f%%", mem.SwapPercent()), 6))
	}
	if m.graphsOn() {
		data := tail(m.history.View(history.SeriesMem), w-2)
		lines = append(lines, " "+Sparkline(data, w-2, true, ColorGraph))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDisks(w int) string {
	if len(m.snap.Disks) == 0 {
		return ""
	}
	lines := []string{SectionHeader("Disks", fmt.Sprintf("%d mounted", len(m.snap.Disks)), w) + m.staleMark(metrics.DomainDisk)}
	barW := w - 44
	if barW < 4 {
		barW = 4
	}
	for _, d := range m.snap.Disks {
		usage := fmt.Sprintf("%s / %s", humanize.IBytes(d.UsedBytes), humanize.IBytes(d.TotalBytes))
		lines = append(lines, " "+LabelStyle.Render(padRight(d.Mountpoint, 16))+" "+
			Bar(barW, d.Percent())+" "+padLeft(fmt.Sprintf("%.0f%%", d.Percent()), 4)+"  "+MutedStyle.Render(usage))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderNetwork(w int) string {
	rx, tx := m.snap.TotalRxPerSec(), m.snap.TotalTxPerSec()
	value := fmt.Sprintf("↓ %s  ↑ %s", FormatRate(rx), FormatRate(tx))
	lines := []string{SectionHeader("Network", value, w) + m.staleMark(metrics.DomainNetwork)}

	if m.graphsOn() {
		half := (w - 8) / 2
		lines = append(lines, " "+LabelStyle.Render("rx ")+Sparkline(tail(m.history.View(history.SeriesNetRx), half), half, false, ColorHealthy)+
			" "+LabelStyle.Render("tx ")+Sparkline(tail(m.history.View(history.SeriesNetTx), half), half, false, ColorAccent))
	}
	for _, n := range m.snap.Network {
		if n.RxPerSec == 0 && n.TxPerSec == 0 {
			continue
		}
		lines = append(lines, " "+LabelStyle.Render(padRight(n.Name, 16))+" ↓ "+padLeft(FormatRate(n.RxPerSec), 12)+"  ↑ "+padLeft(FormatRate(n.TxPerSec), 12))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSensors(w int) string {
	if len(m.snap.Sensors) == 0 {
		return ""
	}
	cells := make([]string, 0, len(m.snap.Sensors))
	for _, s := range m.snap.Sensors {
		cells = append(cells, LabelStyle.Render(s.Sensor)+" "+MetricStyle(s.Celsius).Render(fmt.Sprintf("%.0f°C", s.Celsius)))
	}
	return SectionHeader("Sensors", fmt.Sprintf("%d", len(cells)), w) + m.staleMark(metrics.DomainSensors) + "\n " +
		lipgloss.NewStyle().Width(w-2).Render(strings.Join(cells, "  "))
}

// renderFooter renders the status message, or key hints when there is none.
func (m Model) renderFooter() string {
	if m.state.Status.Text != "" {
		return FooterStyle.Render(StatusStyle.Render(m.state.Status.Text))
	}
	hints := []string{"q quit", "? help", "1-6 sort", "^k kill"}
	if m.state.GPUAvailable {
		hints = append(hints, "tab panel")
	}
	if m.state.Filter != "" {
		hints = append(hints, "filter: "+m.state.Filter+" (/ clears)")
	}
	if m.state.ShowAll {
		hints = append(hints, "all processes")
	}
	return FooterStyle.Render(strings.Join(hints, " · "))
}

func indent(block string) string {
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		lines[i] = " " + l
	}
	return strings.Join(lines, "\n")
}

// formatUptime renders an uptime as "3d 4h", "2h 5m" or "42m".
func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	mins := int(d % time.Hour / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// FormatRate formats a bytes-per-second rate as a human-readable string.
func FormatRate(bytesPerSecond float64) string {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}
