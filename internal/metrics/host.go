package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/rileyhilliard/nvglance/internal/errors"
)

// HostSources returns the gopsutil-backed sources for every non-GPU domain.
func HostSources() []Source {
	return []Source{
		NewHostInfoSource(),
		NewCPUSource(),
		NewMemorySource(),
		NewDiskSource(),
		NewNetworkSource(),
		NewSensorSource(),
		NewProcessSource(),
	}
}

// HostInfoSource reads hostname, OS, kernel and uptime.
type HostInfoSource struct{}

func NewHostInfoSource() *HostInfoSource { return &HostInfoSource{} }

func (s *HostInfoSource) Domain() Domain { return DomainHost }

func (s *HostInfoSource) Collect(ctx context.Context, snap *Snapshot) error {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return errors.Unavailable("host", err)
	}
	snap.Host = HostInfo{
		Hostname: info.Hostname,
		OS:       info.OS,
		Platform: strings.TrimSpace(info.Platform + " " + info.PlatformVersion),
		Kernel:   info.KernelVersion,
		Uptime:   time.Duration(info.Uptime) * time.Second,
	}
	return nil
}

// CPUSource computes usage from cpu time deltas between calls. The first
// call has no baseline and reports 0%.
type CPUSource struct {
	mu       sync.Mutex
	prevAll  *cpu.TimesStat
	prevCore []cpu.TimesStat
}

func NewCPUSource() *CPUSource { return &CPUSource{} }

func (s *CPUSource) Domain() Domain { return DomainCPU }

func (s *CPUSource) Collect(ctx context.Context, snap *Snapshot) error {
	all, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(all) == 0 {
		return errors.Unavailable("cpu", err)
	}
	cores, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return errors.Unavailable("cpu", err)
	}

	s.mu.Lock()
	var out CPUMetrics
	if s.prevAll != nil {
		out.Percent = busyPercent(*s.prevAll, all[0])
	}
	out.PerCore = make([]float64, len(cores))
	for i, c := range cores {
		if i < len(s.prevCore) {
			out.PerCore[i] = busyPercent(s.prevCore[i], c)
		}
	}
	s.prevAll = &all[0]
	s.prevCore = cores
	s.mu.Unlock()

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		out.FrequencyMHz = infos[0].Mhz
	}
	// Load average is missing on some platforms; CPU usage is still valid.
	if avg, err := load.AvgWithContext(ctx); err == nil {
		out.LoadAvg = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}

	snap.CPU = out
	return nil
}

// busyPercent returns the non-idle share of the time elapsed between two
// samples of the same counter.
func busyPercent(prev, cur cpu.TimesStat) float64 {
	total := cur.Total() - prev.Total()
	idle := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	if total <= 0 {
		return 0
	}
	pct := 100 * (1 - idle/total)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// MemorySource reads RAM and swap usage.
type MemorySource struct{}

func NewMemorySource() *MemorySource { return &MemorySource{} }

func (s *MemorySource) Domain() Domain { return DomainMemory }

func (s *MemorySource) Collect(ctx context.Context, snap *Snapshot) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return errors.Unavailable("memory", err)
	}
	out := MemoryMetrics{
		UsedBytes:      vm.Used,
		TotalBytes:     vm.Total,
		AvailableBytes: vm.Available,
	}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		out.SwapUsedBytes = sw.Used
		out.SwapTotalBytes = sw.Total
	}
	snap.Memory = out
	return nil
}

// DiskSource lists mounted physical filesystems with their usage.
type DiskSource struct{}

func NewDiskSource() *DiskSource { return &DiskSource{} }

func (s *DiskSource) Domain() Domain { return DomainDisk }

func (s *DiskSource) Collect(ctx context.Context, snap *Snapshot) error {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return errors.Unavailable("disk", err)
	}

	seen := make(map[string]bool, len(parts))
	var out []DiskUsage
	for _, p := range parts {
		if seen[p.Device] {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		seen[p.Device] = true
		out = append(out, DiskUsage{
			Mountpoint: p.Mountpoint,
			Device:     p.Device,
			FSType:     p.Fstype,
			UsedBytes:  usage.Used,
			TotalBytes: usage.Total,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mountpoint < out[j].Mountpoint })

	snap.Disks = out
	return nil
}

// NetworkSource reads per-interface counters and derives rates from the
// previous call.
type NetworkSource struct {
	rates *RateTracker
}

func NewNetworkSource() *NetworkSource {
	return &NetworkSource{rates: NewRateTracker()}
}

func (s *NetworkSource) Domain() Domain { return DomainNetwork }

func (s *NetworkSource) Collect(ctx context.Context, snap *Snapshot) error {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return errors.Unavailable("network", err)
	}

	ifaces := make([]NetworkInterface, 0, len(counters))
	for _, c := range counters {
		if IsLoopback(c.Name) {
			continue
		}
		ifaces = append(ifaces, NetworkInterface{
			Name:      c.Name,
			RxBytes:   c.BytesRecv,
			TxBytes:   c.BytesSent,
			RxPackets: c.PacketsRecv,
			TxPackets: c.PacketsSent,
		})
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Name < ifaces[j].Name })

	snap.Network = s.rates.Apply(ifaces, snap.Timestamp)
	return nil
}

// IsLoopback reports whether an interface name is a loopback device.
func IsLoopback(name string) bool {
	return strings.HasPrefix(name, "lo")
}

// SensorSource reads hardware temperature sensors. Platforms without
// sensors yield an empty list, not an error.
type SensorSource struct{}

func NewSensorSource() *SensorSource { return &SensorSource{} }

func (s *SensorSource) Domain() Domain { return DomainSensors }

func (s *SensorSource) Collect(ctx context.Context, snap *Snapshot) error {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	// gopsutil reports partial reads as warnings alongside results.
	if err != nil && len(temps) == 0 {
		snap.Sensors = nil
		return nil
	}

	out := make([]Temperature, 0, len(temps))
	for _, t := range temps {
		if t.Temperature <= 0 {
			continue
		}
		out = append(out, Temperature{Sensor: t.SensorKey, Celsius: t.Temperature})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	snap.Sensors = out
	return nil
}

// procEntry caches a gopsutil handle and its slow-changing attributes.
// Reusing the handle lets Percent compute usage since the previous tick.
type procEntry struct {
	proc    *process.Process
	name    string
	user    string
	command string
}

// ProcessSource lists all processes with CPU and memory usage.
type ProcessSource struct {
	mu    sync.Mutex
	cache map[int32]*procEntry

	listPIDs func(context.Context) ([]int32, error)
	open     func(context.Context, int32) *procEntry
}

func NewProcessSource() *ProcessSource {
	return &ProcessSource{
		cache:    make(map[int32]*procEntry),
		listPIDs: process.PidsWithContext,
		open:     newProcEntry,
	}
}

func (s *ProcessSource) Domain() Domain { return DomainProcesses }

// Collect opens handles for new PIDs as it goes, so a pass cut short by the
// deadline still leaves its work cached for the next tick. Exited PIDs are
// pruned only after a complete pass.
func (s *ProcessSource) Collect(ctx context.Context, snap *Snapshot) error {
	pids, err := s.listPIDs(ctx)
	if err != nil {
		return errors.Unavailable("processes", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Process, 0, len(pids))
	for _, pid := range pids {
		if ctx.Err() != nil {
			return errors.Unavailable("processes", ctx.Err())
		}

		e, ok := s.cache[pid]
		if !ok {
			e = s.open(ctx, pid)
			if e == nil {
				continue
			}
			s.cache[pid] = e
		}
		out = append(out, e.sample(ctx, pid))
	}
	s.prune(pids)

	snap.Processes = out
	return nil
}

func (s *ProcessSource) prune(pids []int32) {
	listed := make(map[int32]struct{}, len(pids))
	for _, pid := range pids {
		listed[pid] = struct{}{}
	}
	for pid := range s.cache {
		if _, ok := listed[pid]; !ok {
			delete(s.cache, pid)
		}
	}
}

func (e *procEntry) sample(ctx context.Context, pid int32) Process {
	p := Process{
		PID:     pid,
		Name:    e.name,
		User:    e.user,
		Command: e.command,
	}
	if pct, err := e.proc.PercentWithContext(ctx, 0); err == nil {
		p.CPUPercent = pct
	}
	if pct, err := e.proc.MemoryPercentWithContext(ctx); err == nil {
		p.MemPercent = float64(pct)
	}
	if mi, err := e.proc.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		p.RSSBytes = mi.RSS
	}
	if st, err := e.proc.StatusWithContext(ctx); err == nil && len(st) > 0 {
		p.Status = st[0]
	}
	return p
}

func newProcEntry(ctx context.Context, pid int32) *procEntry {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil
	}
	name, err := p.NameWithContext(ctx)
	if err != nil || name == "" {
		return nil
	}
	user, _ := p.UsernameWithContext(ctx)
	cmd, _ := p.CmdlineWithContext(ctx)
	if cmd == "" {
		cmd = name
	}
	return &procEntry{proc: p, name: name, user: user, command: cmd}
}
