package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rileyhilliard/nvglance/internal/config"
	"github.com/rileyhilliard/nvglance/internal/control"
	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/gpu"
	"github.com/rileyhilliard/nvglance/internal/history"
	"github.com/rileyhilliard/nvglance/internal/logger"
	"github.com/rileyhilliard/nvglance/internal/metrics"
	"github.com/rileyhilliard/nvglance/internal/monitor"
	"github.com/rileyhilliard/nvglance/internal/scheduler"
)

// startupReadTimeout bounds the initial CPU and memory read.
const startupReadTimeout = 3 * time.Second

// stdoutIsTerminal is swapped in tests.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func dashboardCommand(cmd *cobra.Command) error {
	cfg, log, closeLog, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	if !stdoutIsTerminal() {
		return errors.Startup(nil, "stdout is not a terminal",
			"Run nvglance in an interactive terminal, or use 'nvglance snapshot' for one-shot output.")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sources := metrics.HostSources()
	if err := checkHostSources(ctx, sources); err != nil {
		return err
	}

	backend := gpu.Select(ctx, log, gpu.DefaultProbers(cfg.GPU))
	defer closeBackend(log, backend)

	return runDashboard(ctx, cfg, log, sources, backend)
}

// closeBackend releases the GPU backend and logs a failure.
func closeBackend(log logger.Logger, b io.Closer) {
	if err := b.Close(); err != nil {
		log.Warn("closing gpu backend: %v", err)
	}
}

// checkHostSources performs one read of the CPU and memory sources. Either
// failing means the dashboard has nothing useful to show.
func checkHostSources(ctx context.Context, sources []metrics.Source) error {
	ctx, cancel := context.WithTimeout(ctx, startupReadTimeout)
	defer cancel()

	for _, src := range sources {
		d := src.Domain()
		if d != metrics.DomainCPU && d != metrics.DomainMemory {
			continue
		}
		if err := src.Collect(ctx, &metrics.Snapshot{Timestamp: time.Now()}); err != nil {
			return errors.Startup(err, fmt.Sprintf("Can't read %s metrics", d),
				"nvglance needs access to host CPU and memory counters (/proc on Linux).")
		}
	}
	return nil
}

func runDashboard(ctx context.Context, cfg *config.Config, log logger.Logger, sources []metrics.Source, backend gpu.Backend) error {
	sched := scheduler.New(scheduler.Options{
		Interval: cfg.Interval,
		Sources:  sources,
		GPU:      backend,
		History:  history.NewStore(cfg.HistorySize),
		Logger:   log,
	})

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx)
	}()

	state := monitor.NewState(cfg.Interval, backend.Available())
	state.ShowAll = cfg.ShowAll
	state.Compact = cfg.Compact
	state.Graphs = !cfg.NoGraphs
	state.Filter = cfg.Filter

	model := monitor.NewModel(monitor.Options{
		Feed:       sched,
		Controller: control.NewOSController(log),
		Logger:     log,
		State:      state,
	})

	log.Info("dashboard starting: backend=%s interval=%s", backend.Name(), cfg.Interval)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, runErr := p.Run()

	sched.Stop()
	if err := <-done; err != nil {
		log.Warn("scheduler: %v", err)
	}
	if runErr != nil {
		return errors.WrapWithCode(runErr, errors.ErrStartup, "Dashboard exited with an error", "")
	}
	log.Info("dashboard stopped")
	return nil
}
