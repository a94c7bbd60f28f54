package errors

import (
	"errors"
	"fmt"
)

// ControlKind classifies why a process-control action failed.
type ControlKind int

const (
	ControlPermissionDenied ControlKind = iota
	ControlNotFound
	ControlPlatformUnsupported
)

func (k ControlKind) String() string {
	switch k {
	case ControlPermissionDenied:
		return "permission denied"
	case ControlNotFound:
		return "not found"
	case ControlPlatformUnsupported:
		return "platform unsupported"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a *ControlError.
var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotFound            = errors.New("process not found")
	ErrPlatformUnsupported = errors.New("signal not supported on this platform")
)

// ControlError is returned by the process controller. None of its kinds are
// fatal; callers surface them as a status message.
type ControlError struct {
	Kind   ControlKind
	PID    int32
	Signal string
	Cause  error
}

// NewControl builds a control error for pid and the named signal.
func NewControl(kind ControlKind, pid int32, signal string, cause error) *ControlError {
	return &ControlError{Kind: kind, PID: pid, Signal: signal, Cause: cause}
}

func (e *ControlError) Error() string {
	msg := fmt.Sprintf("%s %s to PID %d: %s", e.Kind.verb(), e.Signal, e.PID, e.Kind)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (k ControlKind) verb() string {
	if k == ControlPlatformUnsupported {
		return "cannot send"
	}
	return "failed to send"
}

// Is matches the kind sentinels.
func (e *ControlError) Is(target error) bool {
	switch target {
	case ErrPermissionDenied:
		return e.Kind == ControlPermissionDenied
	case ErrNotFound:
		return e.Kind == ControlNotFound
	case ErrPlatformUnsupported:
		return e.Kind == ControlPlatformUnsupported
	}
	return false
}

func (e *ControlError) Unwrap() error {
	return e.Cause
}

// StatusText renders the short status-line message for the error.
func (e *ControlError) StatusText() string {
	switch e.Kind {
	case ControlNotFound:
		return fmt.Sprintf("Process %d not found", e.PID)
	case ControlPermissionDenied:
		return fmt.Sprintf("Permission denied sending %s to PID %d", e.Signal, e.PID)
	case ControlPlatformUnsupported:
		return fmt.Sprintf("%s is not supported on this platform", e.Signal)
	default:
		return fmt.Sprintf("Failed to send %s to PID %d", e.Signal, e.PID)
	}
}

// AsControl extracts a *ControlError from err.
func AsControl(err error) (*ControlError, bool) {
	var ce *ControlError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsControl reports whether err wraps a *ControlError.
func IsControl(err error) bool {
	_, ok := AsControl(err)
	return ok
}
