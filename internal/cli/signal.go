package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rileyhilliard/nvglance/internal/control"
	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/ui"
)

// signalTimeout bounds one signal delivery.
const signalTimeout = 5 * time.Second

var (
	signalName string
	signalYes  bool
)

// signalCmd sends a signal to one process after confirmation
var signalCmd = &cobra.Command{
	Use:   "signal <pid>",
	Short: "Send SIGTERM, SIGKILL or SIGINT to a process",
	Long: `Send a signal to a process from the shell, with the same confirmation and
error reporting as the dashboard.

Examples:
  nvglance signal 1234
  nvglance signal 1234 --signal kill
  nvglance signal 1234 -s int --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, closeLog, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, cancel := context.WithTimeout(cmd.Context(), signalTimeout)
		defer cancel()

		return signalCommand(ctx, signalOptions{
			PID:     args[0],
			Signal:  signalName,
			Yes:     signalYes,
			Out:     cmd.OutOrStdout(),
			Control: control.NewOSController(log),
			Confirm: promptConfirm,
			Lookup:  processName,
		})
	},
}

func init() {
	rootCmd.AddCommand(signalCmd)
	signalCmd.Flags().StringVarP(&signalName, "signal", "s", "term", "signal to send: term, kill or int")
	signalCmd.Flags().BoolVarP(&signalYes, "yes", "y", false, "skip the confirmation prompt")
}

type signalOptions struct {
	PID     string
	Signal  string
	Yes     bool
	Out     io.Writer
	Control control.Controller
	// Confirm asks the question and reports whether to proceed.
	Confirm func(question string) (bool, error)
	// Lookup returns the process name for the prompt; "" when unknown.
	Lookup func(ctx context.Context, pid int32) string
}

func signalCommand(ctx context.Context, opts signalOptions) error {
	pid, err := parsePID(opts.PID)
	if err != nil {
		return err
	}
	kind, err := control.ParseKind(opts.Signal)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Unknown signal '%s'", opts.Signal),
			"Use term, kill or int.")
	}

	if !opts.Yes {
		target := fmt.Sprintf("PID %d", pid)
		if opts.Lookup != nil {
			if name := opts.Lookup(ctx, pid); name != "" {
				target = fmt.Sprintf("%s (PID %d)", name, pid)
			}
		}
		ok, err := opts.Confirm(fmt.Sprintf("Send %s to %s?", kind, target))
		if err != nil {
			return err
		}
		if !ok {
			ui.Skipped(opts.Out, "Signal cancelled")
			return nil
		}
	}

	if err := opts.Control.Signal(ctx, pid, kind); err != nil {
		if errors.IsControl(err) {
			ui.Fail(opts.Out, "%s", control.StatusText(pid, kind, err))
		}
		return err
	}
	ui.Success(opts.Out, "%s", control.StatusText(pid, kind, nil))
	return nil
}

func parsePID(s string) (int32, error) {
	pid, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || pid <= 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a valid PID", s),
			"Pass the numeric process ID shown in the dashboard or by ps.")
	}
	return int32(pid), nil
}

// promptConfirm asks on the terminal. Without one it refuses rather than
// signalling unattended.
func promptConfirm(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New(errors.ErrConfig,
			"Can't ask for confirmation without a terminal",
			"Re-run with --yes to send the signal non-interactively.")
	}

	var proceed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Send").
				Negative("Cancel").
				Value(&proceed),
		),
	)
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return false, nil
		}
		return false, err
	}
	return proceed, nil
}

func processName(ctx context.Context, pid int32) string {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ""
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ""
	}
	return name
}
