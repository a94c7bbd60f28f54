package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/gpu"
	"github.com/rileyhilliard/nvglance/internal/history"
	"github.com/rileyhilliard/nvglance/internal/metrics"
	"github.com/rileyhilliard/nvglance/internal/proctable"
	"github.com/rileyhilliard/nvglance/internal/scheduler"
)

var (
	snapshotJSON bool
	snapshotTop  int
)

// snapshotCmd prints one poll of every source and exits
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print one sample of every metric as YAML or JSON",
	Long: `Take one sample of host and GPU metrics and print it, then exit.

Two polls are taken one interval apart so CPU and network rates are real.
GPU fields the device does not report are left out rather than shown as zero.

Examples:
  nvglance snapshot
  nvglance snapshot --json --top 5
  nvglance snapshot --interval 250ms --filter python`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "print JSON instead of YAML")
	snapshotCmd.Flags().IntVar(&snapshotTop, "top", 10, "number of processes to include (0 for all)")
}

func snapshotCommand(cmd *cobra.Command) error {
	cfg, log, closeLog, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	backend := gpu.Select(ctx, log, gpu.DefaultProbers(cfg.GPU))
	defer closeBackend(log, backend)

	sched := scheduler.New(scheduler.Options{
		Interval: cfg.Interval,
		Sources:  metrics.HostSources(),
		GPU:      backend,
		History:  history.NewStore(2),
		Logger:   log,
	})

	snap, err := takeSnapshot(ctx, sched, cfg.Interval)
	if err != nil {
		return err
	}

	report := buildReport(snap, reportOptions{Top: snapshotTop, ShowAll: cfg.ShowAll, Filter: cfg.Filter})
	return writeReport(cmd.OutOrStdout(), report, snapshotJSON)
}

// poller is the part of the scheduler a snapshot needs.
type poller interface {
	Poll(ctx context.Context) *metrics.Snapshot
}

// takeSnapshot polls twice, window apart, and returns the second result.
func takeSnapshot(ctx context.Context, p poller, window time.Duration) (*metrics.Snapshot, error) {
	p.Poll(ctx)

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "Snapshot interrupted")
	case <-timer.C:
	}
	return p.Poll(ctx), nil
}

// Report is the serialized form of one Snapshot.
type Report struct {
	Timestamp time.Time       `yaml:"timestamp" json:"timestamp"`
	Host      HostReport      `yaml:"host" json:"host"`
	CPU       CPUReport       `yaml:"cpu" json:"cpu"`
	Memory    MemoryReport    `yaml:"memory" json:"memory"`
	Disks     []DiskReport    `yaml:"disks,omitempty" json:"disks,omitempty"`
	Network   []NetworkReport `yaml:"network,omitempty" json:"network,omitempty"`
	Sensors   []SensorReport  `yaml:"sensors,omitempty" json:"sensors,omitempty"`
	GPU       GPUReport       `yaml:"gpu" json:"gpu"`
	Processes []ProcessReport `yaml:"processes" json:"processes"`
	// Stale names domains whose read failed and were carried over.
	Stale []string `yaml:"stale,omitempty" json:"stale,omitempty"`
}

type HostReport struct {
	Hostname      string `yaml:"hostname" json:"hostname"`
	OS            string `yaml:"os" json:"os"`
	Platform      string `yaml:"platform" json:"platform"`
	Kernel        string `yaml:"kernel" json:"kernel"`
	UptimeSeconds int64  `yaml:"uptime_seconds" json:"uptime_seconds"`
}

type CPUReport struct {
	Percent      float64    `yaml:"percent" json:"percent"`
	PerCore      []float64  `yaml:"per_core" json:"per_core"`
	FrequencyMHz float64    `yaml:"frequency_mhz,omitempty" json:"frequency_mhz,omitempty"`
	LoadAvg      [3]float64 `yaml:"load_avg" json:"load_avg"`
}

type MemoryReport struct {
	UsedBytes      uint64  `yaml:"used_bytes" json:"used_bytes"`
	TotalBytes     uint64  `yaml:"total_bytes" json:"total_bytes"`
	Percent        float64 `yaml:"percent" json:"percent"`
	SwapUsedBytes  uint64  `yaml:"swap_used_bytes" json:"swap_used_bytes"`
	SwapTotalBytes uint64  `yaml:"swap_total_bytes" json:"swap_total_bytes"`
}

type DiskReport struct {
	Mountpoint string  `yaml:"mountpoint" json:"mountpoint"`
	Device     string  `yaml:"device" json:"device"`
	UsedBytes  uint64  `yaml:"used_bytes" json:"used_bytes"`
	TotalBytes uint64  `yaml:"total_bytes" json:"total_bytes"`
	Percent    float64 `yaml:"percent" json:"percent"`
}

type NetworkReport struct {
	Name     string  `yaml:"name" json:"name"`
	RxPerSec float64 `yaml:"rx_bytes_per_sec" json:"rx_bytes_per_sec"`
	TxPerSec float64 `yaml:"tx_bytes_per_sec" json:"tx_bytes_per_sec"`
}

type SensorReport struct {
	Sensor  string  `yaml:"sensor" json:"sensor"`
	Celsius float64 `yaml:"celsius" json:"celsius"`
}

type GPUReport struct {
	Backend       string            `yaml:"backend" json:"backend"`
	DriverVersion string            `yaml:"driver_version,omitempty" json:"driver_version,omitempty"`
	APIVersion    string            `yaml:"api_version,omitempty" json:"api_version,omitempty"`
	Devices       []GPUDeviceReport `yaml:"devices" json:"devices"`
}

// GPUDeviceReport leaves unsupported fields nil so they are omitted.
type GPUDeviceReport struct {
	Index       int      `yaml:"index" json:"index"`
	Name        string   `yaml:"name" json:"name"`
	Supported   string   `yaml:"supported" json:"supported"`
	Utilization *float64 `yaml:"utilization_percent,omitempty" json:"utilization_percent,omitempty"`
	MemoryUsed  *uint64  `yaml:"memory_used_bytes,omitempty" json:"memory_used_bytes,omitempty"`
	MemoryTotal *uint64  `yaml:"memory_total_bytes,omitempty" json:"memory_total_bytes,omitempty"`
	MemoryUtil  *float64 `yaml:"memory_util_percent,omitempty" json:"memory_util_percent,omitempty"`
	Temperature *float64 `yaml:"temperature_c,omitempty" json:"temperature_c,omitempty"`
	Fan         *float64 `yaml:"fan_percent,omitempty" json:"fan_percent,omitempty"`
	PowerWatts  *float64 `yaml:"power_watts,omitempty" json:"power_watts,omitempty"`
	PowerLimit  *float64 `yaml:"power_limit_watts,omitempty" json:"power_limit_watts,omitempty"`
	SMClockMHz  *uint32  `yaml:"sm_clock_mhz,omitempty" json:"sm_clock_mhz,omitempty"`
	MemClockMHz *uint32  `yaml:"mem_clock_mhz,omitempty" json:"mem_clock_mhz,omitempty"`
	Encoder     *float64 `yaml:"encoder_percent,omitempty" json:"encoder_percent,omitempty"`
	Decoder     *float64 `yaml:"decoder_percent,omitempty" json:"decoder_percent,omitempty"`
	PCIeRx      *uint64  `yaml:"pcie_rx_bytes_per_sec,omitempty" json:"pcie_rx_bytes_per_sec,omitempty"`
	PCIeTx      *uint64  `yaml:"pcie_tx_bytes_per_sec,omitempty" json:"pcie_tx_bytes_per_sec,omitempty"`
	PState      string   `yaml:"pstate,omitempty" json:"pstate,omitempty"`
}

type ProcessReport struct {
	PID            int32   `yaml:"pid" json:"pid"`
	Name           string  `yaml:"name" json:"name"`
	User           string  `yaml:"user" json:"user"`
	CPUPercent     float64 `yaml:"cpu_percent" json:"cpu_percent"`
	MemPercent     float64 `yaml:"mem_percent" json:"mem_percent"`
	GPUMemoryBytes *uint64 `yaml:"gpu_memory_bytes,omitempty" json:"gpu_memory_bytes,omitempty"`
	GPUType        string  `yaml:"gpu_type,omitempty" json:"gpu_type,omitempty"`
	Command        string  `yaml:"command,omitempty" json:"command,omitempty"`
}

type reportOptions struct {
	// Top limits the process list; zero or less keeps every row.
	Top     int
	ShowAll bool
	Filter  string
}

func buildReport(snap *metrics.Snapshot, opts reportOptions) Report {
	r := Report{
		Timestamp: snap.Timestamp,
		Host: HostReport{
			Hostname:      snap.Host.Hostname,
			OS:            snap.Host.OS,
			Platform:      snap.Host.Platform,
			Kernel:        snap.Host.Kernel,
			UptimeSeconds: int64(snap.Host.Uptime / time.Second),
		},
		CPU: CPUReport{
			Percent:      snap.CPU.Percent,
			PerCore:      snap.CPU.PerCore,
			FrequencyMHz: snap.CPU.FrequencyMHz,
			LoadAvg:      snap.CPU.LoadAvg,
		},
		Memory: MemoryReport{
			UsedBytes:      snap.Memory.UsedBytes,
			TotalBytes:     snap.Memory.TotalBytes,
			Percent:        snap.Memory.Percent(),
			SwapUsedBytes:  snap.Memory.SwapUsedBytes,
			SwapTotalBytes: snap.Memory.SwapTotalBytes,
		},
		GPU: GPUReport{
			Backend:       snap.GPU.Backend,
			DriverVersion: snap.GPU.DriverVersion,
			APIVersion:    snap.GPU.APIVersion,
			Devices:       []GPUDeviceReport{},
		},
		Processes: []ProcessReport{},
	}
	if r.GPU.Backend == "" {
		r.GPU.Backend = metrics.BackendNone
	}

	for _, d := range snap.Disks {
		r.Disks = append(r.Disks, DiskReport{
			Mountpoint: d.Mountpoint,
			Device:     d.Device,
			UsedBytes:  d.UsedBytes,
			TotalBytes: d.TotalBytes,
			Percent:    d.Percent(),
		})
	}
	for _, n := range snap.Network {
		if metrics.IsLoopback(n.Name) {
			continue
		}
		r.Network = append(r.Network, NetworkReport{Name: n.Name, RxPerSec: n.RxPerSec, TxPerSec: n.TxPerSec})
	}
	for _, s := range snap.Sensors {
		r.Sensors = append(r.Sensors, SensorReport{Sensor: s.Sensor, Celsius: s.Celsius})
	}
	for _, d := range snap.GPU.Devices {
		r.GPU.Devices = append(r.GPU.Devices, deviceReport(d))
	}

	rows := proctable.Build(snap.Processes, proctable.Options{
		Panel:      proctable.PanelHost,
		Column:     proctable.ColumnCPU,
		Descending: true,
		ShowAll:    opts.ShowAll,
		Filter:     opts.Filter,
	})
	if opts.Top > 0 && len(rows) > opts.Top {
		rows = rows[:opts.Top]
	}
	for _, row := range rows {
		p := ProcessReport{
			PID:        row.PID,
			Name:       row.Name,
			User:       row.User,
			CPUPercent: row.CPUPercent,
			MemPercent: row.MemPercent,
			GPUType:    row.GPUType,
			Command:    row.Command,
		}
		p.GPUMemoryBytes = opt(row.HasGPU, row.GPUMemoryBytes)
		r.Processes = append(r.Processes, p)
	}

	for _, d := range snap.Stale.Domains() {
		r.Stale = append(r.Stale, d.String())
	}
	return r
}

func deviceReport(d metrics.GPUDevice) GPUDeviceReport {
	s := d.Supported
	out := GPUDeviceReport{
		Index:       d.Index,
		Name:        d.Name,
		Supported:   s.String(),
		Utilization: opt(s.Has(metrics.GPUUtilization), d.UtilizationPercent),
		MemoryUsed:  opt(s.Has(metrics.GPUMemory), d.MemoryUsedBytes),
		MemoryTotal: opt(s.Has(metrics.GPUMemory), d.MemoryTotalBytes),
		MemoryUtil:  opt(s.Has(metrics.GPUMemoryUtilization), d.MemoryUtilizationPct),
		Temperature: opt(s.Has(metrics.GPUTemperature), d.TemperatureC),
		Fan:         opt(s.Has(metrics.GPUFan), d.FanPercent),
		PowerWatts:  opt(s.Has(metrics.GPUPower), d.PowerWatts),
		PowerLimit:  opt(s.Has(metrics.GPUPower), d.PowerLimitWatts),
		SMClockMHz:  opt(s.Has(metrics.GPUClocks), d.SMClockMHz),
		MemClockMHz: opt(s.Has(metrics.GPUClocks), d.MemClockMHz),
		Encoder:     opt(s.Has(metrics.GPUCodec), d.EncoderPercent),
		Decoder:     opt(s.Has(metrics.GPUCodec), d.DecoderPercent),
		PCIeRx:      opt(s.Has(metrics.GPUPCIe), d.PCIeRxBytesPerSec),
		PCIeTx:      opt(s.Has(metrics.GPUPCIe), d.PCIeTxBytesPerSec),
	}
	if s.Has(metrics.GPUPState) {
		out.PState = d.PState
	}
	return out
}

// opt returns &v when ok, else nil.
func opt[T any](ok bool, v T) *T {
	if !ok {
		return nil
	}
	return &v
}

func writeReport(w io.Writer, r Report, asJSON bool) error {
	if asJSON {
		return WriteJSONSuccess(w, r)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "Failed to encode snapshot")
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return nil
}
