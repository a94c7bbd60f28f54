package gpu

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/metrics"
)

var (
	ioregModelRe = regexp.MustCompile(`"model"\s*=\s*"([^"]+)"`)
	ioregPerfRe  = regexp.MustCompile(`"PerformanceStatistics"\s*=\s*\{([^}]+)\}`)
)

var ioregArgs = []string{"-r", "-d", "1", "-w", "0", "-c", "AGXAccelerator"}

// ParseIOReg parses Apple Silicon GPU data from:
//
//	ioreg -r -d 1 -w 0 -c AGXAccelerator
//
// Each AGXAccelerator entry becomes one device. Utilization is supported when
// "Device Utilization %" is present; memory when both "In use system memory"
// and "Alloc system memory" are.
func ParseIOReg(output string) []metrics.GPUDevice {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}

	var devices []metrics.GPUDevice
	for _, entry := range splitIORegEntries(output) {
		d := metrics.GPUDevice{Index: len(devices)}
		if m := ioregModelRe.FindStringSubmatch(entry); len(m) > 1 {
			d.Name = m[1]
		}

		if m := ioregPerfRe.FindStringSubmatch(entry); len(m) > 1 {
			stats := m[1]
			if v, ok := ioregFloat(stats, "Device Utilization %"); ok {
				d.UtilizationPercent = v
				d.Supported |= metrics.GPUUtilization
			}
			used, okUsed := ioregUint(stats, "In use system memory")
			alloc, okAlloc := ioregUint(stats, "Alloc system memory")
			if okUsed && okAlloc {
				d.MemoryUsedBytes = used
				d.MemoryTotalBytes = alloc
				d.Supported |= metrics.GPUMemory
			}
		}

		if d.Name == "" && d.Supported == 0 {
			continue
		}
		if d.Name == "" {
			d.Name = "Apple GPU"
		}
		devices = append(devices, d)
	}
	return devices
}

// splitIORegEntries splits ioreg output at each "+-o" node header.
func splitIORegEntries(output string) []string {
	var entries []string
	var cur strings.Builder
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "+-o") && cur.Len() > 0 {
			entries = append(entries, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	if cur.Len() > 0 {
		entries = append(entries, cur.String())
	}
	return entries
}

func ioregFloat(stats, key string) (float64, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*=\s*([\d.]+)`)
	if m := re.FindStringSubmatch(stats); len(m) > 1 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func ioregUint(stats, key string) (uint64, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*=\s*(\d+)`)
	if m := re.FindStringSubmatch(stats); len(m) > 1 {
		if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

type appleBackend struct {
	run  runner
	caps map[int]metrics.GPUFieldSet
}

// ProbeApple succeeds on macOS when ioreg reports an AGX accelerator.
func ProbeApple(ctx context.Context) (Backend, error) {
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("apple GPU backend requires macOS, running on %s", runtime.GOOS)
	}
	return probeApple(ctx, execRunner)
}

func probeApple(ctx context.Context, run runner) (Backend, error) {
	out, err := run(ctx, "ioreg", ioregArgs...)
	if err != nil {
		return nil, err
	}
	devs := ParseIOReg(out)
	if len(devs) == 0 {
		return nil, fmt.Errorf("ioreg reported no AGXAccelerator")
	}

	b := &appleBackend{run: run, caps: make(map[int]metrics.GPUFieldSet, len(devs))}
	for _, d := range devs {
		b.caps[d.Index] = d.Supported
	}
	return b, nil
}

func (b *appleBackend) Domain() metrics.Domain { return metrics.DomainGPU }
func (b *appleBackend) Name() string           { return metrics.BackendApple }
func (b *appleBackend) Available() bool        { return true }
func (b *appleBackend) Close() error           { return nil }

func (b *appleBackend) Collect(ctx context.Context, snap *metrics.Snapshot) error {
	out, err := b.run(ctx, "ioreg", ioregArgs...)
	if err != nil {
		return errors.Unavailable("gpu", err)
	}

	info := metrics.GPUInfo{Backend: metrics.BackendApple, APIVersion: "Metal"}
	for _, d := range ParseIOReg(out) {
		want, ok := b.caps[d.Index]
		if !ok {
			continue
		}
		if !d.Supported.Has(want) {
			return errors.Unavailable("gpu", fmt.Errorf("GPU %d dropped fields: %s", d.Index, want&^d.Supported))
		}
		d.Supported = want
		info.Devices = append(info.Devices, d.Normalize())
	}
	if len(info.Devices) == 0 {
		return errors.Unavailable("gpu", fmt.Errorf("ioreg returned no GPU data"))
	}

	snap.GPU = info
	return nil
}
