package gpu

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/nvglance/internal/logger"
	"github.com/rileyhilliard/nvglance/internal/metrics"
)

// Backend is the GPU metric source chosen for the run. It fills
// Snapshot.GPU and nothing else.
type Backend interface {
	metrics.Source
	// Name is one of the metrics.Backend* constants.
	Name() string
	// Available is false only for the none backend.
	Available() bool
	// Close releases driver handles. Safe to call more than once.
	Close() error
}

// Prober attempts to bring up one backend. An error means the backend is
// not usable on this machine and the next prober should be tried.
type Prober struct {
	Name  string
	Probe func(ctx context.Context) (Backend, error)
}

// Preference restricts which backend family Select may choose.
type Preference string

const (
	PreferAuto   Preference = "auto"
	PreferNvidia Preference = "nvidia"
	PreferApple  Preference = "apple"
	PreferNone   Preference = "none"
)

// ParsePreference validates a preference string.
func ParsePreference(s string) (Preference, error) {
	switch p := Preference(s); p {
	case PreferAuto, PreferNvidia, PreferApple, PreferNone:
		return p, nil
	case "":
		return PreferAuto, nil
	}
	return "", fmt.Errorf("unknown GPU backend %q (want auto, nvidia, apple or none)", s)
}

// DefaultProbers returns the probers for a preference in probe order:
// NVML, then nvidia-smi, then Apple ioreg.
func DefaultProbers(pref Preference) []Prober {
	nvidia := []Prober{
		{Name: metrics.BackendNVML, Probe: ProbeNVML},
		{Name: metrics.BackendNvSMI, Probe: ProbeNvidiaSMI},
	}
	apple := []Prober{
		{Name: metrics.BackendApple, Probe: ProbeApple},
	}

	switch pref {
	case PreferNvidia:
		return nvidia
	case PreferApple:
		return apple
	case PreferNone:
		return nil
	}
	return append(nvidia, apple...)
}

// Select runs probers in order and returns the first backend that comes up.
// When every probe fails the none backend is returned; that is not an error.
func Select(ctx context.Context, log logger.Logger, probers []Prober) Backend {
	if log == nil {
		log = logger.Default()
	}
	for _, p := range probers {
		b, err := p.Probe(ctx)
		if err != nil {
			log.Debug("gpu backend %s unavailable: %v", p.Name, err)
			continue
		}
		log.Info("gpu backend %s selected", b.Name())
		return b
	}
	log.Info("no GPU backend found; GPU panels disabled")
	return None()
}

// noneBackend reports an empty GPU domain.
type noneBackend struct{}

// None returns the backend used when no GPU is available.
func None() Backend { return noneBackend{} }

func (noneBackend) Domain() metrics.Domain { return metrics.DomainGPU }
func (noneBackend) Name() string           { return metrics.BackendNone }
func (noneBackend) Available() bool        { return false }
func (noneBackend) Close() error           { return nil }

func (noneBackend) Collect(_ context.Context, snap *metrics.Snapshot) error {
	snap.GPU = metrics.GPUInfo{Backend: metrics.BackendNone}
	return nil
}
