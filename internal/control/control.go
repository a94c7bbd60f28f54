package control

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/logger"
)

// Kind is a process-control action.
type Kind int

const (
	Terminate Kind = iota
	Kill
	Interrupt
)

// String returns the signal name.
func (k Kind) String() string {
	switch k {
	case Terminate:
		return "SIGTERM"
	case Kill:
		return "SIGKILL"
	case Interrupt:
		return "SIGINT"
	default:
		return "SIG?"
	}
}

// ParseKind accepts signal names with or without the SIG prefix, in any
// case: term, SIGKILL, int.
func ParseKind(s string) (Kind, error) {
	switch normalize(s) {
	case "TERM", "TERMINATE":
		return Terminate, nil
	case "KILL":
		return Kill, nil
	case "INT", "INTERRUPT":
		return Interrupt, nil
	}
	return 0, fmt.Errorf("unknown signal %q (want term, kill or int)", s)
}

func normalize(s string) string {
	return strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "SIG")
}

// Controller delivers a signal to a process. Expected failures are
// *errors.ControlError; anything else carries the CONTROL error code.
type Controller interface {
	Signal(ctx context.Context, pid int32, kind Kind) error
}

// OSController signals local processes through gopsutil.
type OSController struct {
	log  logger.Logger
	goos string
}

// NewOSController returns a controller for the running OS.
func NewOSController(log logger.Logger) *OSController {
	if log == nil {
		log = logger.Default()
	}
	return &OSController{log: log, goos: runtime.GOOS}
}

// Signal sends kind to pid. A non-positive pid is reported as not found so
// it can never address a process group.
func (c *OSController) Signal(ctx context.Context, pid int32, kind Kind) error {
	if pid <= 0 {
		return errors.NewControl(errors.ControlNotFound, pid, kind.String(), nil)
	}
	if kind == Interrupt && c.goos == "windows" {
		return errors.NewControl(errors.ControlPlatformUnsupported, pid, kind.String(), nil)
	}

	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return classify(pid, kind, err)
	}

	switch kind {
	case Terminate:
		err = p.TerminateWithContext(ctx)
	case Kill:
		err = p.KillWithContext(ctx)
	case Interrupt:
		err = p.SendSignalWithContext(ctx, syscall.SIGINT)
	default:
		return errors.NewControl(errors.ControlPlatformUnsupported, pid, kind.String(), nil)
	}
	if err != nil {
		cerr := classify(pid, kind, err)
		c.log.Warn("%v", cerr)
		return cerr
	}

	c.log.Info("sent %s to PID %d", kind, pid)
	return nil
}

func classify(pid int32, kind Kind, err error) error {
	switch {
	case stderrors.Is(err, process.ErrorProcessNotRunning), stderrors.Is(err, syscall.ESRCH), stderrors.Is(err, os.ErrProcessDone):
		return errors.NewControl(errors.ControlNotFound, pid, kind.String(), err)
	case stderrors.Is(err, syscall.EPERM), stderrors.Is(err, os.ErrPermission):
		return errors.NewControl(errors.ControlPermissionDenied, pid, kind.String(), err)
	case isNotImplemented(err):
		return errors.NewControl(errors.ControlPlatformUnsupported, pid, kind.String(), err)
	}
	return errors.WrapWithCode(err, errors.ErrControl,
		fmt.Sprintf("Failed to send %s to PID %d", kind, pid), "")
}

func isNotImplemented(err error) bool {
	return err != nil && err.Error() == "not implemented yet"
}

// StatusText renders the outcome of a signal for the status line.
func StatusText(pid int32, kind Kind, err error) string {
	if err == nil {
		return fmt.Sprintf("Sent %s to PID %d", kind, pid)
	}
	if ce, ok := errors.AsControl(err); ok {
		return ce.StatusText()
	}
	return fmt.Sprintf("Failed to send %s to PID %d", kind, pid)
}
