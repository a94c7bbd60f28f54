package monitor

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/nvglance/internal/history"
	"github.com/rileyhilliard/nvglance/internal/metrics"
)

// notAvailable is shown for fields a device does not report.
const notAvailable = "N/A"

// renderGPUs renders one card per device.
func (m Model) renderGPUs(w int) string {
	g := m.snap.GPU
	if len(g.Devices) == 0 {
		return SectionHeader("GPU", g.Backend, w) + m.staleMark(metrics.DomainGPU) + "\n " +
			MutedStyle.Render("no devices reported")
	}
	cards := make([]string, 0, len(g.Devices))
	for _, d := range g.Devices {
		cards = append(cards, m.renderGPUCard(d, w))
	}
	return strings.Join(cards, "\n")
}

// renderGPUCard renders the gauges and readings of one device. Unsupported
// fields render as N/A, never as zero.
func (m Model) renderGPUCard(d metrics.GPUDevice, w int) string {
	title := fmt.Sprintf("GPU %d · %s", d.Index, d.Name)
	value := ""
	if d.Supported.Has(metrics.GPUPState) {
		value = d.PState
	}
	lines := []string{SectionHeader(title, value, w) + m.staleMark(metrics.DomainGPU)}

	gaugeW := (w - 36) / 2
	if gaugeW < 6 {
		gaugeW = 6
	}
	util := LabelStyle.Render("Util ")
	if pct, ok := d.Utilization(); ok {
		util += m.gaugeView(gaugeW, pct) + " " + padLeft(fmt.Sprintf("%.0f%%", pct), 4)
	} else {
		util += MutedStyle.Render(padRight(notAvailable, gaugeW+5))
	}
	mem := LabelStyle.Render("Mem ")
	if pct, ok := d.MemoryPercent(); ok {
		mem += m.gaugeView(gaugeW, pct) + " " +
			fmt.Sprintf("%s / %s", humanize.IBytes(d.MemoryUsedBytes), humanize.IBytes(d.MemoryTotalBytes))
	} else {
		mem += MutedStyle.Render(notAvailable)
	}
	lines = append(lines, " "+util+"  "+mem)

	if !m.state.Compact {
		lines = append(lines, " "+strings.Join(gpuReadings(d), "  "))
	}
	if m.graphsOn() {
		half := (w - 14) / 2
		lines = append(lines, " "+LabelStyle.Render("util ")+
			Sparkline(tail(m.history.View(history.GPUUtilSeries(d.Index)), half), half, true, ColorGraph)+
			"  "+LabelStyle.Render("mem ")+
			Sparkline(tail(m.history.View(history.GPUMemSeries(d.Index)), half), half, true, ColorAccent))
	}
	return strings.Join(lines, "\n")
}

func (m Model) gaugeView(width int, percent float64) string {
	g := m.gauge
	g.Width = width
	return g.ViewAs(clampPercent(percent) / 100)
}

// gpuReadings formats the secondary fields of d, N/A where unsupported.
func gpuReadings(d metrics.GPUDevice) []string {
	field := func(label string, f metrics.GPUFieldSet, format func() string) string {
		v := notAvailable
		if d.Supported.Has(f) {
			v = format()
		}
		return LabelStyle.Render(label+" ") + ValueStyle.Render(v)
	}

	return []string{
		field("Temp", metrics.GPUTemperature, func() string {
			return MetricStyle(d.TemperatureC).Render(fmt.Sprintf("%.0f°C", d.TemperatureC))
		}),
		field("Mem BW", metrics.GPUMemoryUtilization, func() string { return fmt.Sprintf("%.0f%%", d.MemoryUtilizationPct) }),
		field("Fan", metrics.GPUFan, func() string { return fmt.Sprintf("%.0f%%", d.FanPercent) }),
		field("Power", metrics.GPUPower, func() string {
			if d.PowerLimitWatts > 0 {
				return fmt.Sprintf("%.0f / %.0f W", d.PowerWatts, d.PowerLimitWatts)
			}
			return fmt.Sprintf("%.0f W", d.PowerWatts)
		}),
		field("Clocks", metrics.GPUClocks, func() string {
			return fmt.Sprintf("%d / %d MHz", d.SMClockMHz, d.MemClockMHz)
		}),
		field("Enc/Dec", metrics.GPUCodec, func() string {
			return fmt.Sprintf("%.0f%% / %.0f%%", d.EncoderPercent, d.DecoderPercent)
		}),
		field("PCIe", metrics.GPUPCIe, func() string {
			return fmt.Sprintf("↓ %s ↑ %s", FormatRate(float64(d.PCIeRxBytesPerSec)), FormatRate(float64(d.PCIeTxBytesPerSec)))
		}),
	}
}
