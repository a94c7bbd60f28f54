package metrics

import "strings"

// Backend names reported in GPUInfo.Backend.
const (
	BackendNone  = "none"
	BackendNVML  = "nvml"
	BackendNvSMI = "nvidia-smi"
	BackendApple = "apple"
)

// GPUFieldSet records which optional GPUDevice fields a device reports.
// A field outside the set is unsupported on that device and must be shown
// as N/A rather than as a zero value.
type GPUFieldSet uint16

const (
	GPUUtilization GPUFieldSet = 1 << iota
	GPUMemory
	GPUMemoryUtilization
	GPUTemperature
	GPUFan
	GPUPower
	GPUClocks
	GPUCodec
	GPUPCIe
	GPUPState
)

// AllGPUFields is every optional field.
const AllGPUFields = GPUUtilization | GPUMemory | GPUMemoryUtilization | GPUTemperature |
	GPUFan | GPUPower | GPUClocks | GPUCodec | GPUPCIe | GPUPState

var gpuFieldNames = []struct {
	f    GPUFieldSet
	name string
}{
	{GPUUtilization, "util"},
	{GPUMemory, "mem"},
	{GPUMemoryUtilization, "mem_util"},
	{GPUTemperature, "temp"},
	{GPUFan, "fan"},
	{GPUPower, "power"},
	{GPUClocks, "clocks"},
	{GPUCodec, "codec"},
	{GPUPCIe, "pcie"},
	{GPUPState, "pstate"},
}

// Has reports whether every field in f is present.
func (s GPUFieldSet) Has(f GPUFieldSet) bool {
	return s&f == f
}

func (s GPUFieldSet) String() string {
	var names []string
	for _, n := range gpuFieldNames {
		if s.Has(n.f) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// GPUDevice is one accelerator reading. Values outside Supported are zero
// and meaningless; use the accessors on the renderer side.
type GPUDevice struct {
	Index     int
	Name      string
	Supported GPUFieldSet

	UtilizationPercent   float64
	MemoryUtilizationPct float64
	MemoryUsedBytes      uint64
	MemoryTotalBytes     uint64
	TemperatureC         float64
	FanPercent           float64
	PowerWatts           float64
	PowerLimitWatts      float64
	SMClockMHz           uint32
	MemClockMHz          uint32
	EncoderPercent       float64
	DecoderPercent       float64
	PCIeRxBytesPerSec    uint64
	PCIeTxBytesPerSec    uint64
	PState               string
}

// Normalize zeroes every value outside the supported set so a stray
// reading can never be mistaken for a real one.
func (d GPUDevice) Normalize() GPUDevice {
	s := d.Supported
	if !s.Has(GPUUtilization) {
		d.UtilizationPercent = 0
	}
	if !s.Has(GPUMemory) {
		d.MemoryUsedBytes, d.MemoryTotalBytes = 0, 0
	}
	if !s.Has(GPUMemoryUtilization) {
		d.MemoryUtilizationPct = 0
	}
	if !s.Has(GPUTemperature) {
		d.TemperatureC = 0
	}
	if !s.Has(GPUFan) {
		d.FanPercent = 0
	}
	if !s.Has(GPUPower) {
		d.PowerWatts, d.PowerLimitWatts = 0, 0
	}
	if !s.Has(GPUClocks) {
		d.SMClockMHz, d.MemClockMHz = 0, 0
	}
	if !s.Has(GPUCodec) {
		d.EncoderPercent, d.DecoderPercent = 0, 0
	}
	if !s.Has(GPUPCIe) {
		d.PCIeRxBytesPerSec, d.PCIeTxBytesPerSec = 0, 0
	}
	if !s.Has(GPUPState) {
		d.PState = ""
	}
	return d
}

// MemoryPercent returns memory used as a percentage of total, and false when
// memory is unsupported.
func (d GPUDevice) MemoryPercent() (float64, bool) {
	if !d.Supported.Has(GPUMemory) {
		return 0, false
	}
	return percentOf(d.MemoryUsedBytes, d.MemoryTotalBytes), true
}

// Utilization returns the utilization percentage and whether it is supported.
func (d GPUDevice) Utilization() (float64, bool) {
	return d.UtilizationPercent, d.Supported.Has(GPUUtilization)
}

// GPU process types as reported by NVML.
const (
	GPUProcessCompute  = "C"
	GPUProcessGraphics = "G"
)

// GPUProcess is one process holding memory on one device.
type GPUProcess struct {
	PID        int32
	GPUIndex   int
	Name       string
	UsedMemory uint64
	Type       string
}

// GPUInfo is the GPU domain of a Snapshot. With the none backend Devices
// and Processes are empty.
type GPUInfo struct {
	Backend       string
	DriverVersion string
	APIVersion    string
	Devices       []GPUDevice
	Processes     []GPUProcess
}

// Available reports whether any device is present.
func (g GPUInfo) Available() bool {
	return len(g.Devices) > 0
}
