package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"

	"github.com/rileyhilliard/nvglance/internal/errors"
)

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigInvalid       = "CONFIG_INVALID"
	ErrCodeStartupFailed       = "STARTUP_FAILED"
	ErrCodeSourceUnavailable   = "SOURCE_UNAVAILABLE"
	ErrCodeBackendFailed       = "BACKEND_FAILED"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeProcessNotFound     = "PROCESS_NOT_FOUND"
	ErrCodePlatformUnsupported = "PLATFORM_UNSUPPORTED"
	ErrCodeSignalFailed        = "SIGNAL_FAILED"
	ErrCodeUnknown             = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: true,
		Data:    data,
	})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	if ce, ok := errors.AsControl(err); ok {
		return &JSONError{
			Code:    controlErrorCode(ce.Kind),
			Message: ce.StatusText(),
			Details: map[string]interface{}{
				"pid":    ce.PID,
				"signal": ce.Signal,
			},
		}
	}

	var nvErr *errors.Error
	if stderrors.As(err, &nvErr) {
		return &JSONError{
			Code:       mapErrorCode(nvErr.Code),
			Message:    nvErr.Message,
			Suggestion: nvErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode string) string {
	switch internalCode {
	case errors.ErrConfig:
		return ErrCodeConfigInvalid
	case errors.ErrStartup:
		return ErrCodeStartupFailed
	case errors.ErrSource:
		return ErrCodeSourceUnavailable
	case errors.ErrBackend:
		return ErrCodeBackendFailed
	case errors.ErrControl:
		return ErrCodeSignalFailed
	}
	return ErrCodeUnknown
}

func controlErrorCode(kind errors.ControlKind) string {
	switch kind {
	case errors.ControlPermissionDenied:
		return ErrCodePermissionDenied
	case errors.ControlNotFound:
		return ErrCodeProcessNotFound
	case errors.ControlPlatformUnsupported:
		return ErrCodePlatformUnsupported
	}
	return ErrCodeSignalFailed
}
