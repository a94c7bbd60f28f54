// Package cli implements the nvglance command-line interface.
//
// The package is organized around Cobra commands. Each command resolves its
// settings through the config package, then hands off to the packages that
// do the work:
//
//	nvglance              - Interactive dashboard (monitor + scheduler)
//	nvglance snapshot     - One sample printed as YAML, or JSON with --json
//	nvglance signal <pid> - Confirmation-gated SIGTERM/SIGKILL/SIGINT
//	nvglance version      - Build information
//
// # Startup
//
// The dashboard refuses to start when stdout is not a terminal or when the
// host CPU and memory sources fail their first read. Either condition is an
// errors.ErrStartup error printed before the alternate screen is entered.
// A missing GPU is not an error: the backend falls back to none and the GPU
// panels stay hidden.
//
// # Output
//
// Structured errors from internal/errors print in their own format. --json
// output uses the JSONEnvelope shape from json.go.
package cli
