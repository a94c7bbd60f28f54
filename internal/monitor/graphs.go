package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/nvglance/internal/history"
)

// Braille cells are 2 dots wide and 4 tall. Unicode braille starts at
// U+2800; dotBits[row][col] is the bit for each dot.
const brailleBase = '\u2800'

var dotBits = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// sparkBlocks are the 8 levels of a one-row sparkline, lowest first.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// tail drains a history view and keeps the newest n values.
func tail(v *history.View, n int) []float64 {
	if v == nil || n <= 0 {
		return nil
	}
	for v.Remaining() > n {
		if _, ok := v.Next(); !ok {
			return nil
		}
	}
	out := make([]float64, 0, v.Remaining())
	for {
		s, ok := v.Next()
		if !ok {
			return out
		}
		out = append(out, s.Value)
	}
}

// scale returns the value range to plot. Percentages use a fixed 0-100
// range so graphs stay comparable between ticks.
func scale(data []float64, percent bool) (lo, hi float64) {
	if percent {
		return 0, 100
	}
	for _, v := range data {
		if v > hi {
			hi = v
		}
	}
	if hi == 0 {
		hi = 1
	}
	return 0, hi
}

func level(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	f := (v - lo) / (hi - lo)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Sparkline renders data as one row of block characters, right-aligned in
// width cells.
func Sparkline(data []float64, width int, percent bool, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	if len(data) > width {
		data = downsample(data, width)
	}
	lo, hi := scale(data, percent)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(data)))
	for _, v := range data {
		idx := int(level(v, lo, hi) * float64(len(sparkBlocks)-1))
		b.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Render(b.String())
}

// BrailleGraph renders data on a width x height grid of braille cells, two
// samples per cell, newest at the right. Percentage graphs are colored per
// column by severity.
func BrailleGraph(data []float64, width, height int, percent bool, color lipgloss.Color) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	points := width * 2
	if len(data) > points {
		data = downsample(data, points)
	}
	lo, hi := scale(data, percent)
	dots := height * 4
	offset := points - len(data)

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(brailleBase), width))
	}
	peak := make([]float64, width)

	for i, v := range data {
		x := i + offset
		col, sub := x/2, x%2
		if v > peak[col] {
			peak[col] = v
		}
		h := int(level(v, lo, hi) * float64(dots))
		for d := 0; d < h; d++ {
			row := height - 1 - d/4
			grid[row][col] |= rune(1) << dotBits[3-d%4][sub]
		}
	}

	lines := make([]string, height)
	for r, row := range grid {
		var b strings.Builder
		for c, ch := range row {
			fg := color
			if percent {
				fg = MetricColor(peak[c])
			}
			b.WriteString(lipgloss.NewStyle().Foreground(fg).Render(string(ch)))
		}
		lines[r] = b.String()
	}
	return strings.Join(lines, "\n")
}

// downsample compresses data to n points keeping the maximum of each bucket
// so short spikes stay visible.
func downsample(data []float64, n int) []float64 {
	if n <= 0 || len(data) <= n {
		return data
	}
	out := make([]float64, n)
	bucket := float64(len(data)) / float64(n)
	for i := range out {
		start := int(float64(i) * bucket)
		end := int(float64(i+1) * bucket)
		if end > len(data) {
			end = len(data)
		}
		if end <= start {
			end = start + 1
		}
		m := data[start]
		for _, v := range data[start+1 : end] {
			if v > m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}
