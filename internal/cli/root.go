package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/nvglance/internal/config"
	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/logger"
	"github.com/rileyhilliard/nvglance/internal/ui"
)

// rootCmd runs the dashboard when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "nvglance",
	Short: "Live terminal monitor for host and GPU telemetry",
	Long: `nvglance shows CPU, memory, disk, network and process activity next to
NVIDIA or Apple Silicon GPU telemetry in one interactive dashboard.

GPU backends are probed in order: NVML, nvidia-smi, then Apple ioreg. With
none available the host panels still work and the GPU panels stay hidden.

Every flag can also be set through the environment as NVGLANCE_<FLAG>,
for example NVGLANCE_INTERVAL=500ms or NVGLANCE_SHOW_ALL=1.

Examples:
  nvglance
  nvglance --interval 500ms --compact
  nvglance --gpu none --filter python
  NVGLANCE_LOG=/tmp/nvglance.log nvglance --debug`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardCommand(cmd)
	},
}

func init() {
	config.AddFlags(rootCmd.PersistentFlags())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// formatError renders structured errors as-is and prefixes anything else
// with the failure symbol.
func formatError(err error) string {
	msg := err.Error()
	var nvErr *errors.Error
	if !stderrors.As(err, &nvErr) {
		msg = fmt.Sprintf("%s %s", ui.SymbolFail, msg)
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return msg
}

// loadConfig resolves flags and environment for cmd and applies the
// process-wide settings: color profile and default logger. The returned
// close function releases the log file.
func loadConfig(cmd *cobra.Command) (*config.Config, logger.Logger, func(), error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.NoColor {
		ui.DisableColors()
	}

	log, closeLog, err := openLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.SetDefault(log)
	return cfg, log, closeLog, nil
}

func openLogger(cfg *config.Config) (logger.Logger, func(), error) {
	if cfg.LogFile == "" {
		return logger.New(logger.Options{Debug: cfg.Debug}), func() {}, nil
	}

	f, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't open log file %s", cfg.LogFile),
			"Check the directory exists and is writable, or drop --log-file.")
	}
	log := logger.New(logger.Options{Output: f, Debug: cfg.Debug, Component: "nvglance"})
	return log, func() { _ = f.Close() }, nil
}
