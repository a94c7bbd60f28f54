// Package config resolves nvglance settings from command-line flags and
// NVGLANCE_* environment variables into a validated Config.
//
// Precedence, highest first:
//
//	--flag on the command line
//	NVGLANCE_<FLAG> environment variable (NVGLANCE_LOG for --log-file)
//	built-in default
package config
