package metrics

import (
	"strings"
	"time"
)

// Domain identifies one metric area polled by a Source.
type Domain uint16

const (
	DomainHost Domain = 1 << iota
	DomainCPU
	DomainMemory
	DomainDisk
	DomainNetwork
	DomainSensors
	DomainProcesses
	DomainGPU
)

var domainNames = []struct {
	d    Domain
	name string
}{
	{DomainHost, "host"},
	{DomainCPU, "cpu"},
	{DomainMemory, "memory"},
	{DomainDisk, "disk"},
	{DomainNetwork, "network"},
	{DomainSensors, "sensors"},
	{DomainProcesses, "processes"},
	{DomainGPU, "gpu"},
}

func (d Domain) String() string {
	for _, n := range domainNames {
		if n.d == d {
			return n.name
		}
	}
	return "unknown"
}

// DomainSet is a bit set of domains.
type DomainSet uint16

// Has reports whether d is in the set.
func (s DomainSet) Has(d Domain) bool {
	return s&DomainSet(d) != 0
}

// With returns the set with d added.
func (s DomainSet) With(d Domain) DomainSet {
	return s | DomainSet(d)
}

// Domains lists the members in declaration order.
func (s DomainSet) Domains() []Domain {
	var out []Domain
	for _, n := range domainNames {
		if s.Has(n.d) {
			out = append(out, n.d)
		}
	}
	return out
}

func (s DomainSet) String() string {
	names := make([]string, 0, len(domainNames))
	for _, d := range s.Domains() {
		names = append(names, d.String())
	}
	return strings.Join(names, ",")
}

// Snapshot is one immutable poll result. The scheduler builds it, publishes
// it and never touches it again; the next tick replaces it wholesale.
type Snapshot struct {
	Timestamp time.Time
	// Elapsed is the time since the previous snapshot, zero for the first.
	Elapsed time.Duration

	Host      HostInfo
	CPU       CPUMetrics
	Memory    MemoryMetrics
	Disks     []DiskUsage
	Network   []NetworkInterface
	Sensors   []Temperature
	GPU       GPUInfo
	Processes []Process

	// Stale lists domains whose values were carried over from the previous
	// snapshot because this tick's read failed.
	Stale DomainSet
}

// HostInfo is static-ish information about the machine.
type HostInfo struct {
	Hostname string
	OS       string
	Platform string
	Kernel   string
	Uptime   time.Duration
}

// CPUMetrics contains CPU usage information.
type CPUMetrics struct {
	Percent      float64
	PerCore      []float64
	FrequencyMHz float64
	LoadAvg      [3]float64
}

// Cores returns the number of logical cores reported.
func (c CPUMetrics) Cores() int {
	return len(c.PerCore)
}

// MemoryMetrics contains RAM and swap usage in bytes.
type MemoryMetrics struct {
	UsedBytes      uint64
	TotalBytes     uint64
	AvailableBytes uint64
	SwapUsedBytes  uint64
	SwapTotalBytes uint64
}

// Percent returns RAM usage as a percentage, 0 when total is unknown.
func (m MemoryMetrics) Percent() float64 {
	return percentOf(m.UsedBytes, m.TotalBytes)
}

// SwapPercent returns swap usage as a percentage, 0 without swap.
func (m MemoryMetrics) SwapPercent() float64 {
	return percentOf(m.SwapUsedBytes, m.SwapTotalBytes)
}

// DiskUsage describes one mounted filesystem.
type DiskUsage struct {
	Mountpoint string
	Device     string
	FSType     string
	UsedBytes  uint64
	TotalBytes uint64
}

// Percent returns disk usage as a percentage.
func (d DiskUsage) Percent() float64 {
	return percentOf(d.UsedBytes, d.TotalBytes)
}

// NetworkInterface carries cumulative counters and per-second rates.
type NetworkInterface struct {
	Name      string
	RxBytes   uint64
	TxBytes   uint64
	RxPerSec  float64
	TxPerSec  float64
	RxPackets uint64
	TxPackets uint64
}

// Temperature is one sensor reading in degrees Celsius.
type Temperature struct {
	Sensor  string
	Celsius float64
}

// Process is one raw OS process record.
type Process struct {
	PID        int32
	Name       string
	User       string
	Command    string
	Status     string
	CPUPercent float64
	MemPercent float64
	RSSBytes   uint64
	// GPUMemory maps GPU index to bytes used on that device. Nil when the
	// process has no GPU allocation.
	GPUMemory map[int]uint64
	// GPUType is "C", "G" or "C+G" for processes on a GPU.
	GPUType string
}

// GPUMemoryTotal returns the bytes used across all GPUs and whether the
// process has any GPU usage at all.
func (p Process) GPUMemoryTotal() (uint64, bool) {
	if len(p.GPUMemory) == 0 {
		return 0, false
	}
	var total uint64
	for _, b := range p.GPUMemory {
		total += b
	}
	return total, true
}

// TotalRxPerSec sums receive rates across interfaces.
func (s *Snapshot) TotalRxPerSec() float64 {
	var total float64
	for _, n := range s.Network {
		total += n.RxPerSec
	}
	return total
}

// TotalTxPerSec sums transmit rates across interfaces.
func (s *Snapshot) TotalTxPerSec() float64 {
	var total float64
	for _, n := range s.Network {
		total += n.TxPerSec
	}
	return total
}

// Carry copies domain d from prev into s and marks it stale. A nil prev
// leaves the zero value in place but still marks the domain.
func (s *Snapshot) Carry(d Domain, prev *Snapshot) {
	s.Stale = s.Stale.With(d)
	if prev != nil {
		s.Merge(d, prev)
	}
}

// Merge copies the fields of domain d from src into s.
func (s *Snapshot) Merge(d Domain, src *Snapshot) {
	switch d {
	case DomainHost:
		s.Host = src.Host
	case DomainCPU:
		s.CPU = src.CPU
	case DomainMemory:
		s.Memory = src.Memory
	case DomainDisk:
		s.Disks = src.Disks
	case DomainNetwork:
		s.Network = src.Network
	case DomainSensors:
		s.Sensors = src.Sensors
	case DomainProcesses:
		s.Processes = src.Processes
	case DomainGPU:
		s.GPU = src.GPU
	}
}

// AttachGPUProcesses merges per-GPU process records into Processes. GPU
// processes that the host listing did not see are appended with what is
// known about them.
func (s *Snapshot) AttachGPUProcesses() {
	if len(s.GPU.Processes) == 0 {
		return
	}

	byPID := make(map[int32]int, len(s.Processes))
	procs := make([]Process, len(s.Processes))
	copy(procs, s.Processes)
	for i, p := range procs {
		byPID[p.PID] = i
		procs[i].GPUMemory = nil
		procs[i].GPUType = ""
	}

	for _, gp := range s.GPU.Processes {
		i, ok := byPID[gp.PID]
		if !ok {
			name := gp.Name
			if name == "" {
				name = "unknown"
			}
			procs = append(procs, Process{PID: gp.PID, Name: name, Command: name})
			i = len(procs) - 1
			byPID[gp.PID] = i
		}
		if procs[i].GPUMemory == nil {
			procs[i].GPUMemory = make(map[int]uint64)
		}
		procs[i].GPUMemory[gp.GPUIndex] += gp.UsedMemory
		switch t := procs[i].GPUType; {
		case t == "":
			procs[i].GPUType = gp.Type
		case t != gp.Type && gp.Type != "":
			procs[i].GPUType = GPUProcessCompute + "+" + GPUProcessGraphics
		}
	}

	s.Processes = procs
}

func percentOf(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}
