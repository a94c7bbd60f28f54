package monitor

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/nvglance/internal/metrics"
)

func highlightedRows(view string) []string {
	open := strings.SplitN(SelectedRowStyle.Render("x"), "x", 2)[0]
	var out []string
	for _, line := range strings.Split(view, "\n") {
		if strings.Contains(line, open) {
			out = append(out, stripANSI(line))
		}
	}
	return out
}

func TestView_HighlightsOnlyFocusedSelection(t *testing.T) {
	lipgloss.SetColorProfile(termenv.TrueColor)
	t.Cleanup(func() { lipgloss.SetColorProfile(termenv.Ascii) })

	m, _ := newTestModel(t, &fakeController{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 50})
	m, _ = update(t, m, keyMsg("down"))

	rows := highlightedRows(m.View())
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "bash")

	m, _ = update(t, m, keyMsg("tab"))
	rows = highlightedRows(m.View())
	require.Len(t, rows, 1, "only the focused panel highlights")
	assert.Contains(t, rows[0], "python")
	assert.False(t, m.Tables().Host[1].Selected, "rendering leaves the tables unmarked")
}

func TestView_Dashboard(t *testing.T) {
	m, _ := newTestModel(t, &fakeController{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 50})
	view := stripANSI(m.View())

	for _, want := range []string{
		"nvglance",
		"box",
		"ubuntu 6.8.0",
		"up 1d 2h",
		"nvml driver 550.54 CUDA 12.4",
		"CPU",
		"Memory",
		"GPU 0 · RTX 4090",
		"Processes",
		"GPU Processes",
		"python",
		"q quit",
	} {
		assert.Contains(t, view, want)
	}
}

func TestView_UnsupportedGPUFieldsShowNA(t *testing.T) {
	m, _ := newTestModel(t, &fakeController{})
	view := stripANSI(m.View())

	assert.Contains(t, view, "Temp N/A")
	assert.Contains(t, view, "Power N/A")
	assert.NotContains(t, view, "0°C", "unsupported temperature must not render as zero")
}

func TestView_StaleMarker(t *testing.T) {
	snap := testSnapshot()
	snap.Stale = snap.Stale.With(metrics.DomainCPU)
	m, _ := newTestModel(t, &fakeController{})
	m, _ = update(t, m, snapshotMsg{snap: snap})

	assert.Contains(t, stripANSI(m.renderCPU(80)), "stale")
	assert.NotContains(t, stripANSI(m.renderMemory(80)), "stale")
}

func TestView_WaitingForFirstSample(t *testing.T) {
	feed := newFakeFeed(nil)
	m := NewModel(Options{Feed: feed, Controller: &fakeController{}, State: NewState(time.Second, false)})
	assert.Contains(t, stripANSI(m.View()), "waiting for first sample")
}

func TestView_CompactHidesDetail(t *testing.T) {
	snap := testSnapshot()
	snap.Disks = []metrics.DiskUsage{{Mountpoint: "/data", UsedBytes: 1 << 30, TotalBytes: 4 << 30}}
	m, _ := newTestModel(t, &fakeController{})
	m, _ = update(t, m, snapshotMsg{snap: snap})
	assert.Contains(t, stripANSI(m.View()), "/data")

	m, _ = update(t, m, keyMsg("c"))
	assert.NotContains(t, stripANSI(m.View()), "/data")
}

func TestView_SortIndicator(t *testing.T) {
	m, _ := newTestModel(t, &fakeController{})
	view := stripANSI(m.View())
	assert.Contains(t, view, "CPU%▼")

	m, _ = update(t, m, keyMsg("r"))
	assert.Contains(t, stripANSI(m.View()), "CPU%▲")
}

func TestView_FooterFilter(t *testing.T) {
	m, _ := newTestModel(t, &fakeController{})
	m.state.Filter = "py"
	assert.Contains(t, stripANSI(m.renderFooter()), "filter: py")
}

func TestScrollOffset(t *testing.T) {
	tests := []struct {
		name                     string
		selected, visible, total int
		want                     int
	}{
		{"fits", 2, 5, 4, 0},
		{"inside first window", 3, 5, 20, 0},
		{"scrolls with selection", 7, 5, 20, 3},
		{"last row", 19, 5, 20, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scrollOffset(tt.selected, tt.visible, tt.total))
		})
	}
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "3d 4h", formatUptime(76*time.Hour+10*time.Minute))
	assert.Equal(t, "2h 5m", formatUptime(2*time.Hour+5*time.Minute+30*time.Second))
	assert.Equal(t, "42m", formatUptime(42*time.Minute))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "0 B/s", FormatRate(0))
	assert.Equal(t, "0 B/s", FormatRate(-5))
	assert.Equal(t, "1.5 KiB/s", FormatRate(1536))
	assert.True(t, strings.HasSuffix(FormatRate(50*1024*1024), "MiB/s"))
}
