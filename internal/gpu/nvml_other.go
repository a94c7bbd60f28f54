//go:build !linux

package gpu

import (
	"context"
	"fmt"
	"runtime"
)

// ProbeNVML always fails off Linux; nvidia-smi is tried next.
func ProbeNVML(_ context.Context) (Backend, error) {
	return nil, fmt.Errorf("nvml backend is not built for %s", runtime.GOOS)
}
