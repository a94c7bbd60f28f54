package gpu

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/metrics"
)

// smiGPUQuery is the column order ParseNvidiaSMI expects.
var smiGPUQuery = []string{
	"index", "uuid", "name",
	"utilization.gpu", "utilization.memory",
	"memory.used", "memory.total",
	"temperature.gpu", "fan.speed",
	"power.draw", "power.limit",
	"clocks.sm", "clocks.mem",
	"pstate", "driver_version",
}

const smiAppQuery = "gpu_uuid,pid,process_name,used_memory"

// Free-text columns. nvidia-smi does not quote CSV values, so a comma inside
// a name shows up as extra fields.
const (
	smiNameColumn    = 2
	smiAppColumns    = 4
	smiAppNameColumn = 2
)

// SMIDevice is one parsed nvidia-smi row.
type SMIDevice struct {
	Device metrics.GPUDevice
	UUID   string
	Driver string
}

// ParseNvidiaSMI parses GPU rows from:
//
//	nvidia-smi --query-gpu=<smiGPUQuery> --format=csv,noheader,nounits
//
// Columns reported as [N/A] or [Not Supported] leave the matching field out
// of the device's supported set.
func ParseNvidiaSMI(output string) ([]SMIDevice, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}

	lower := strings.ToLower(output)
	if strings.Contains(lower, "no devices") ||
		strings.Contains(lower, "has failed") ||
		strings.Contains(lower, "couldn't communicate") {
		return nil, fmt.Errorf("nvidia-smi: %s", firstLine(output))
	}

	var devices []SMIDevice
	for lineNo, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields, ok := splitSMIRow(line, len(smiGPUQuery), smiNameColumn)
		if !ok {
			return nil, fmt.Errorf("nvidia-smi line %d has %d fields, expected %d", lineNo+1, len(fields), len(smiGPUQuery))
		}

		dev, err := parseSMIRow(fields)
		if err != nil {
			return nil, fmt.Errorf("nvidia-smi line %d: %w", lineNo+1, err)
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func parseSMIRow(f []string) (SMIDevice, error) {
	idx, err := strconv.Atoi(f[0])
	if err != nil {
		return SMIDevice{}, fmt.Errorf("failed to parse GPU index '%s': %w", f[0], err)
	}

	d := metrics.GPUDevice{Index: idx, Name: f[2]}
	num := func(s string) (float64, bool) {
		if !smiValuePresent(s) {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}

	util, okUtil := num(f[3])
	memUtil, okMemUtil := num(f[4])
	if okUtil {
		d.UtilizationPercent = util
		d.Supported |= metrics.GPUUtilization
	}
	if okMemUtil {
		d.MemoryUtilizationPct = memUtil
		d.Supported |= metrics.GPUMemoryUtilization
	}

	used, okUsed := num(f[5])
	total, okTotal := num(f[6])
	if okUsed && okTotal {
		// MiB to bytes
		d.MemoryUsedBytes = uint64(used) * 1024 * 1024
		d.MemoryTotalBytes = uint64(total) * 1024 * 1024
		d.Supported |= metrics.GPUMemory
	}

	if temp, ok := num(f[7]); ok {
		d.TemperatureC = temp
		d.Supported |= metrics.GPUTemperature
	}
	if fan, ok := num(f[8]); ok {
		d.FanPercent = fan
		d.Supported |= metrics.GPUFan
	}

	draw, okDraw := num(f[9])
	limit, okLimit := num(f[10])
	if okDraw && okLimit {
		d.PowerWatts = draw
		d.PowerLimitWatts = limit
		d.Supported |= metrics.GPUPower
	}

	sm, okSM := num(f[11])
	memClock, okMemClock := num(f[12])
	if okSM && okMemClock {
		d.SMClockMHz = uint32(sm)
		d.MemClockMHz = uint32(memClock)
		d.Supported |= metrics.GPUClocks
	}

	if smiValuePresent(f[13]) {
		d.PState = f[13]
		d.Supported |= metrics.GPUPState
	}

	return SMIDevice{Device: d, UUID: f[1], Driver: f[14]}, nil
}

// ParseNvidiaSMIApps parses:
//
//	nvidia-smi --query-compute-apps=gpu_uuid,pid,process_name,used_memory --format=csv,noheader,nounits
//
// uuidIndex maps GPU UUIDs to device indexes; rows for unknown GPUs are
// dropped.
func ParseNvidiaSMIApps(output string, uuidIndex map[string]int) []metrics.GPUProcess {
	var procs []metrics.GPUProcess
	seen := make(map[[2]int64]bool)

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		fields, ok := splitSMIRow(line, smiAppColumns, smiAppNameColumn)
		if !ok {
			continue
		}

		idx, ok := uuidIndex[fields[0]]
		if !ok {
			continue
		}
		pid, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			continue
		}
		key := [2]int64{int64(idx), pid}
		if seen[key] {
			continue
		}
		seen[key] = true

		var used uint64
		if mib, err := strconv.ParseUint(fields[3], 10, 64); err == nil {
			used = mib * 1024 * 1024
		}
		procs = append(procs, metrics.GPUProcess{
			PID:        int32(pid),
			GPUIndex:   idx,
			Name:       baseName(fields[2]),
			UsedMemory: used,
			Type:       metrics.GPUProcessCompute,
		})
	}
	return procs
}

// splitSMIRow splits a row into exactly want trimmed columns, folding any
// surplus fields back into the free-text column at text. It returns the raw
// fields and false when the row is short.
func splitSMIRow(line string, want, text int) ([]string, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < want {
		return fields, false
	}
	if extra := len(fields) - want; extra > 0 {
		folded := make([]string, 0, want)
		folded = append(folded, fields[:text]...)
		folded = append(folded, strings.Join(fields[text:text+extra+1], ","))
		folded = append(folded, fields[text+extra+1:]...)
		fields = folded
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, true
}

func smiValuePresent(s string) bool {
	return s != "" && !strings.HasPrefix(s, "[")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// smiBackend polls nvidia-smi each tick. Used when NVML cannot be loaded.
type smiBackend struct {
	run  runner
	caps map[int]metrics.GPUFieldSet
	uuid map[string]int
}

// ProbeNvidiaSMI succeeds when nvidia-smi is on PATH and lists at least one GPU.
func ProbeNvidiaSMI(ctx context.Context) (Backend, error) {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return nil, err
	}
	return probeSMI(ctx, execRunner)
}

func probeSMI(ctx context.Context, run runner) (Backend, error) {
	b := &smiBackend{run: run}
	devs, err := b.query(ctx)
	if err != nil {
		return nil, err
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("nvidia-smi reported no GPUs")
	}

	b.caps = make(map[int]metrics.GPUFieldSet, len(devs))
	b.uuid = make(map[string]int, len(devs))
	for _, d := range devs {
		b.caps[d.Device.Index] = d.Device.Supported
		b.uuid[d.UUID] = d.Device.Index
	}
	return b, nil
}

func (b *smiBackend) query(ctx context.Context) ([]SMIDevice, error) {
	out, err := b.run(ctx, "nvidia-smi",
		"--query-gpu="+strings.Join(smiGPUQuery, ","),
		"--format=csv,noheader,nounits")
	if err != nil {
		return nil, err
	}
	return ParseNvidiaSMI(out)
}

func (b *smiBackend) Domain() metrics.Domain { return metrics.DomainGPU }
func (b *smiBackend) Name() string           { return metrics.BackendNvSMI }
func (b *smiBackend) Available() bool        { return true }
func (b *smiBackend) Close() error           { return nil }

func (b *smiBackend) Collect(ctx context.Context, snap *metrics.Snapshot) error {
	devs, err := b.query(ctx)
	if err != nil {
		return errors.Unavailable("gpu", err)
	}

	info := metrics.GPUInfo{Backend: metrics.BackendNvSMI}
	for _, d := range devs {
		want, ok := b.caps[d.Device.Index]
		if !ok {
			continue
		}
		// A field that read at probe time but not now makes the record partial.
		if !d.Device.Supported.Has(want) {
			return errors.Unavailable("gpu", fmt.Errorf("GPU %d dropped fields: %s", d.Device.Index, want&^d.Device.Supported))
		}
		dev := d.Device
		dev.Supported = want
		info.Devices = append(info.Devices, dev.Normalize())
		info.DriverVersion = d.Driver
	}

	if out, err := b.run(ctx, "nvidia-smi", "--query-compute-apps="+smiAppQuery, "--format=csv,noheader,nounits"); err == nil {
		info.Processes = ParseNvidiaSMIApps(out, b.uuid)
	}

	snap.GPU = info
	return nil
}
