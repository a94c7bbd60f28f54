package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGPUFieldSet_Has(t *testing.T) {
	s := GPUUtilization | GPUMemory

	assert.True(t, s.Has(GPUUtilization))
	assert.True(t, s.Has(GPUUtilization|GPUMemory))
	assert.False(t, s.Has(GPUFan))
	assert.False(t, s.Has(GPUMemory|GPUFan))
	assert.True(t, AllGPUFields.Has(GPUPState|GPUPCIe))
}

func TestGPUFieldSet_String(t *testing.T) {
	assert.Equal(t, "none", GPUFieldSet(0).String())
	assert.Equal(t, "util,mem", (GPUUtilization | GPUMemory).String())
}

func TestGPUDevice_Normalize(t *testing.T) {
	d := GPUDevice{
		Supported:          GPUUtilization | GPUMemory,
		UtilizationPercent: 50,
		MemoryUsedBytes:    2000,
		MemoryTotalBytes:   8000,
		TemperatureC:       70,
		FanPercent:         30,
		PowerWatts:         120,
		SMClockMHz:         1500,
		PState:             "P0",
	}

	n := d.Normalize()

	assert.Equal(t, 50.0, n.UtilizationPercent)
	assert.Equal(t, uint64(2000), n.MemoryUsedBytes)
	assert.Zero(t, n.TemperatureC)
	assert.Zero(t, n.FanPercent)
	assert.Zero(t, n.PowerWatts)
	assert.Zero(t, n.SMClockMHz)
	assert.Empty(t, n.PState)
}

func TestGPUDevice_Accessors(t *testing.T) {
	tests := []struct {
		name       string
		dev        GPUDevice
		wantMemPct float64
		wantMemOK  bool
		wantUtilOK bool
	}{
		{
			name:       "fully populated",
			dev:        GPUDevice{Supported: AllGPUFields, UtilizationPercent: 50, MemoryUsedBytes: 2000, MemoryTotalBytes: 8000},
			wantMemPct: 25,
			wantMemOK:  true,
			wantUtilOK: true,
		},
		{
			name:       "nothing supported",
			dev:        GPUDevice{},
			wantMemOK:  false,
			wantUtilOK: false,
		},
		{
			name:       "memory without total",
			dev:        GPUDevice{Supported: GPUMemory, MemoryUsedBytes: 10},
			wantMemPct: 0,
			wantMemOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, ok := tt.dev.MemoryPercent()
			assert.Equal(t, tt.wantMemOK, ok)
			assert.InDelta(t, tt.wantMemPct, pct, 0.001)

			_, ok = tt.dev.Utilization()
			assert.Equal(t, tt.wantUtilOK, ok)
		})
	}
}

func TestGPUInfo_Available(t *testing.T) {
	assert.False(t, GPUInfo{Backend: BackendNone}.Available())
	assert.True(t, GPUInfo{Devices: []GPUDevice{{}}}.Available())
}
