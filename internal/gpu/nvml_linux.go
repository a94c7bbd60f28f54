//go:build linux

package gpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/metrics"
)

const (
	milliWattsToWatts = 1000
	nvmlNotAvailable  = ^uint64(0)
)

// nvmlDevice is the slice of nvml.Device the backend reads.
type nvmlDevice interface {
	GetName() (string, nvml.Return)
	GetUtilizationRates() (nvml.Utilization, nvml.Return)
	GetMemoryInfo() (nvml.Memory, nvml.Return)
	GetTemperature(nvml.TemperatureSensors) (uint32, nvml.Return)
	GetFanSpeed() (uint32, nvml.Return)
	GetPowerUsage() (uint32, nvml.Return)
	GetPowerManagementLimit() (uint32, nvml.Return)
	GetClockInfo(nvml.ClockType) (uint32, nvml.Return)
	GetEncoderUtilization() (uint32, uint32, nvml.Return)
	GetDecoderUtilization() (uint32, uint32, nvml.Return)
	GetPcieThroughput(nvml.PcieUtilCounter) (uint32, nvml.Return)
	GetPerformanceState() (nvml.Pstates, nvml.Return)
	GetComputeRunningProcesses() ([]nvml.ProcessInfo, nvml.Return)
	GetGraphicsRunningProcesses() ([]nvml.ProcessInfo, nvml.Return)
}

type nvmlError struct {
	op  string
	ret nvml.Return
}

func (e *nvmlError) Error() string {
	return fmt.Sprintf("%s: %s", e.op, nvml.ErrorString(e.ret))
}

func nvmlErr(op string, ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return &nvmlError{op: op, ret: ret}
}

type nvmlGPU struct {
	index int
	name  string
	dev   nvmlDevice
	caps  metrics.GPUFieldSet
}

type nvmlBackend struct {
	gpus      []nvmlGPU
	driver    string
	cuda      string
	procName  func(pid int) string
	shutdown  func() nvml.Return
	closeOnce sync.Once
}

// ProbeNVML loads libnvidia-ml and enumerates devices. It fails when the
// library is missing or no device is present.
func ProbeNVML(_ context.Context) (Backend, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, nvmlErr("nvml init", ret)
	}

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS || count == 0 {
		nvml.Shutdown()
		if ret != nvml.SUCCESS {
			return nil, nvmlErr("device count", ret)
		}
		return nil, fmt.Errorf("nvml reported no GPUs")
	}

	devs := make([]nvmlDevice, 0, count)
	for i := 0; i < count; i++ {
		d, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			nvml.Shutdown()
			return nil, nvmlErr(fmt.Sprintf("device %d handle", i), ret)
		}
		devs = append(devs, d)
	}

	b := newNVMLBackend(devs)
	b.shutdown = nvml.Shutdown
	b.procName = func(pid int) string {
		name, ret := nvml.SystemGetProcessName(pid)
		if ret != nvml.SUCCESS {
			return ""
		}
		return baseName(name)
	}
	if v, ret := nvml.SystemGetDriverVersion(); ret == nvml.SUCCESS {
		b.driver = v
	}
	if v, ret := nvml.SystemGetCudaDriverVersion(); ret == nvml.SUCCESS {
		b.cuda = formatCUDAVersion(v)
	}
	return b, nil
}

// newNVMLBackend probes every device once and remembers which fields it
// answers. Later reads only ask for those.
func newNVMLBackend(devs []nvmlDevice) *nvmlBackend {
	b := &nvmlBackend{procName: func(int) string { return "" }}
	for i, d := range devs {
		name, ret := d.GetName()
		if ret != nvml.SUCCESS {
			name = fmt.Sprintf("GPU %d", i)
		}
		probe := readNVMLDevice(d, metrics.AllGPUFields)
		b.gpus = append(b.gpus, nvmlGPU{index: i, name: name, dev: d, caps: probe.Supported})
	}
	return b
}

// formatCUDAVersion turns NVML's 12040 into "12.4".
func formatCUDAVersion(v int) string {
	return fmt.Sprintf("%d.%d", v/1000, (v%1000)/10)
}

// readNVMLDevice queries the fields in want and returns the device with
// Supported set to the fields that answered.
func readNVMLDevice(d nvmlDevice, want metrics.GPUFieldSet) metrics.GPUDevice {
	var out metrics.GPUDevice

	if want.Has(metrics.GPUUtilization) || want.Has(metrics.GPUMemoryUtilization) {
		if u, ret := d.GetUtilizationRates(); ret == nvml.SUCCESS {
			out.UtilizationPercent = float64(u.Gpu)
			out.MemoryUtilizationPct = float64(u.Memory)
			out.Supported |= metrics.GPUUtilization | metrics.GPUMemoryUtilization
		}
	}
	if want.Has(metrics.GPUMemory) {
		if m, ret := d.GetMemoryInfo(); ret == nvml.SUCCESS {
			out.MemoryUsedBytes = m.Used
			out.MemoryTotalBytes = m.Total
			out.Supported |= metrics.GPUMemory
		}
	}
	if want.Has(metrics.GPUTemperature) {
		if t, ret := d.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
			out.TemperatureC = float64(t)
			out.Supported |= metrics.GPUTemperature
		}
	}
	if want.Has(metrics.GPUFan) {
		if f, ret := d.GetFanSpeed(); ret == nvml.SUCCESS {
			out.FanPercent = float64(f)
			out.Supported |= metrics.GPUFan
		}
	}
	if want.Has(metrics.GPUPower) {
		p, ret := d.GetPowerUsage()
		l, retL := d.GetPowerManagementLimit()
		if ret == nvml.SUCCESS && retL == nvml.SUCCESS {
			out.PowerWatts = float64(p) / milliWattsToWatts
			out.PowerLimitWatts = float64(l) / milliWattsToWatts
			out.Supported |= metrics.GPUPower
		}
	}
	if want.Has(metrics.GPUClocks) {
		sm, ret := d.GetClockInfo(nvml.CLOCK_SM)
		mem, retM := d.GetClockInfo(nvml.CLOCK_MEM)
		if ret == nvml.SUCCESS && retM == nvml.SUCCESS {
			out.SMClockMHz, out.MemClockMHz = sm, mem
			out.Supported |= metrics.GPUClocks
		}
	}
	if want.Has(metrics.GPUCodec) {
		enc, _, ret := d.GetEncoderUtilization()
		dec, _, retD := d.GetDecoderUtilization()
		if ret == nvml.SUCCESS && retD == nvml.SUCCESS {
			out.EncoderPercent = float64(enc)
			out.DecoderPercent = float64(dec)
			out.Supported |= metrics.GPUCodec
		}
	}
	if want.Has(metrics.GPUPCIe) {
		rx, ret := d.GetPcieThroughput(nvml.PCIE_UTIL_RX_BYTES)
		tx, retT := d.GetPcieThroughput(nvml.PCIE_UTIL_TX_BYTES)
		if ret == nvml.SUCCESS && retT == nvml.SUCCESS {
			// KB/s
			out.PCIeRxBytesPerSec = uint64(rx) * 1024
			out.PCIeTxBytesPerSec = uint64(tx) * 1024
			out.Supported |= metrics.GPUPCIe
		}
	}
	if want.Has(metrics.GPUPState) {
		if ps, ret := d.GetPerformanceState(); ret == nvml.SUCCESS {
			out.PState = formatPState(ps)
			out.Supported |= metrics.GPUPState
		}
	}
	return out
}

func formatPState(ps nvml.Pstates) string {
	if ps == nvml.PSTATE_UNKNOWN {
		return "P?"
	}
	return fmt.Sprintf("P%d", int(ps))
}

func (b *nvmlBackend) Domain() metrics.Domain { return metrics.DomainGPU }
func (b *nvmlBackend) Name() string           { return metrics.BackendNVML }
func (b *nvmlBackend) Available() bool        { return true }

func (b *nvmlBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.shutdown != nil {
			err = nvmlErr("nvml shutdown", b.shutdown())
		}
	})
	return err
}

func (b *nvmlBackend) Collect(ctx context.Context, snap *metrics.Snapshot) error {
	info := metrics.GPUInfo{
		Backend:       metrics.BackendNVML,
		DriverVersion: b.driver,
		APIVersion:    b.cuda,
	}

	for _, g := range b.gpus {
		if err := ctx.Err(); err != nil {
			return errors.Unavailable("gpu", err)
		}

		dev := readNVMLDevice(g.dev, g.caps)
		if !dev.Supported.Has(g.caps) {
			return errors.Unavailable("gpu", fmt.Errorf("GPU %d dropped fields: %s", g.index, g.caps&^dev.Supported))
		}
		dev.Index = g.index
		dev.Name = g.name
		dev.Supported = g.caps
		info.Devices = append(info.Devices, dev.Normalize())

		info.Processes = append(info.Processes, b.deviceProcesses(g)...)
	}

	snap.GPU = info
	return nil
}

// deviceProcesses lists compute then graphics processes on one device. A
// PID in both lists is reported once, as compute.
func (b *nvmlBackend) deviceProcesses(g nvmlGPU) []metrics.GPUProcess {
	var out []metrics.GPUProcess
	seen := make(map[uint32]bool)

	add := func(list []nvml.ProcessInfo, typ string) {
		for _, p := range list {
			if seen[p.Pid] {
				continue
			}
			seen[p.Pid] = true

			used := p.UsedGpuMemory
			if used == nvmlNotAvailable {
				used = 0
			}
			out = append(out, metrics.GPUProcess{
				PID:        int32(p.Pid),
				GPUIndex:   g.index,
				Name:       b.procName(int(p.Pid)),
				UsedMemory: used,
				Type:       typ,
			})
		}
	}

	if list, ret := g.dev.GetComputeRunningProcesses(); ret == nvml.SUCCESS {
		add(list, metrics.GPUProcessCompute)
	}
	if list, ret := g.dev.GetGraphicsRunningProcesses(); ret == nvml.SUCCESS {
		add(list, metrics.GPUProcessGraphics)
	}
	return out
}
