package config

import (
	"time"

	"github.com/rileyhilliard/nvglance/internal/gpu"
	"github.com/rileyhilliard/nvglance/internal/history"
	"github.com/rileyhilliard/nvglance/internal/scheduler"
)

// Config is the resolved run configuration. It comes from flags and
// NVGLANCE_* environment variables only; there is no config file.
type Config struct {
	// Interval is the refresh interval between polls.
	Interval time.Duration `mapstructure:"interval" yaml:"interval" json:"interval"`

	// Compact hides the disk, network and sensor panels and the command column.
	Compact bool `mapstructure:"compact" yaml:"compact" json:"compact"`

	// NoGraphs starts with trend graphs hidden.
	NoGraphs bool `mapstructure:"no-graphs" yaml:"no_graphs" json:"no_graphs"`

	// ShowAll lists idle processes in the host table.
	ShowAll bool `mapstructure:"show-all" yaml:"show_all" json:"show_all"`

	// HistorySize is the number of samples kept per trend series.
	HistorySize int `mapstructure:"history-size" yaml:"history_size" json:"history_size"`

	// GPU restricts backend probing: auto, nvidia, apple or none.
	GPU gpu.Preference `mapstructure:"gpu" yaml:"gpu" json:"gpu"`

	// Filter is the initial process text filter.
	Filter string `mapstructure:"filter" yaml:"filter" json:"filter"`

	// LogFile receives log output. Empty discards logs.
	LogFile string `mapstructure:"log-file" yaml:"log_file" json:"log_file"`

	Debug   bool `mapstructure:"debug" yaml:"debug" json:"debug"`
	NoColor bool `mapstructure:"no-color" yaml:"no_color" json:"no_color"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Interval:    scheduler.DefaultInterval,
		HistorySize: history.DefaultSize,
		GPU:         gpu.PreferAuto,
	}
}
