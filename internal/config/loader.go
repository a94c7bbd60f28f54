package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/gpu"
)

// EnvPrefix prefixes every environment variable nvglance reads,
// e.g. NVGLANCE_INTERVAL or NVGLANCE_SHOW_ALL.
const EnvPrefix = "NVGLANCE"

// Flag names. Each one doubles as the viper key and, upper-cased with dashes
// turned into underscores, as the environment variable suffix.
const (
	KeyInterval    = "interval"
	KeyCompact     = "compact"
	KeyNoGraphs    = "no-graphs"
	KeyShowAll     = "show-all"
	KeyHistorySize = "history-size"
	KeyGPU         = "gpu"
	KeyFilter      = "filter"
	KeyLogFile     = "log-file"
	KeyDebug       = "debug"
	KeyNoColor     = "no-color"
)

// AddFlags registers the dashboard flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.StringP(KeyInterval, "i", d.Interval.String(), "refresh interval (e.g. 500ms, 2s; bare numbers are milliseconds)")
	fs.BoolP(KeyCompact, "c", false, "hide disk, network and sensor panels")
	fs.Bool(KeyNoGraphs, false, "start with trend graphs hidden")
	fs.BoolP(KeyShowAll, "a", false, "include idle processes in the host table")
	fs.Int(KeyHistorySize, d.HistorySize, "samples kept per trend graph")
	fs.String(KeyGPU, string(d.GPU), "GPU backend: auto, nvidia, apple or none")
	fs.StringP(KeyFilter, "f", "", "only list processes whose name, user or command contains this text")
	fs.String(KeyLogFile, "", "write logs to this file (also NVGLANCE_LOG)")
	fs.Bool(KeyDebug, false, "enable debug logging")
	fs.Bool(KeyNoColor, false, "disable colors")
}

// Load resolves the configuration from fs and the environment, then
// validates it. Flags given on the command line win over environment
// variables, which win over defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := bind(v, fs); err != nil {
		return nil, err
	}

	cfg, err := parseConfig(v)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bind(v *viper.Viper, fs *pflag.FlagSet) error {
	d := Defaults()
	v.SetDefault(KeyInterval, d.Interval.String())
	v.SetDefault(KeyHistorySize, d.HistorySize)
	v.SetDefault(KeyGPU, string(d.GPU))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Short spellings for the two variables people reach for first.
	if err := v.BindEnv(KeyLogFile, "NVGLANCE_LOG_FILE", "NVGLANCE_LOG"); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to bind environment", "")
	}
	if err := v.BindEnv(KeyNoColor, "NVGLANCE_NO_COLOR", "NO_COLOR"); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to bind environment", "")
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, "Failed to bind flags", "")
		}
	}
	return nil
}

func parseConfig(v *viper.Viper) (*Config, error) {
	interval, err := ParseInterval(v.GetString(KeyInterval))
	if err != nil {
		return nil, err
	}

	size, err := strconv.Atoi(strings.TrimSpace(v.GetString(KeyHistorySize)))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a valid history size", v.GetString(KeyHistorySize)),
			"Use a whole number of samples, like 60 or 120.")
	}

	pref, err := gpu.ParsePreference(strings.ToLower(v.GetString(KeyGPU)))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Unknown GPU backend '%s'", v.GetString(KeyGPU)),
			"Use one of: auto, nvidia, apple, none.")
	}

	return &Config{
		Interval:    interval,
		Compact:     v.GetBool(KeyCompact),
		NoGraphs:    v.GetBool(KeyNoGraphs),
		ShowAll:     v.GetBool(KeyShowAll),
		HistorySize: size,
		GPU:         pref,
		Filter:      v.GetString(KeyFilter),
		LogFile:     v.GetString(KeyLogFile),
		Debug:       v.GetBool(KeyDebug),
		NoColor:     v.GetBool(KeyNoColor),
	}, nil
}

// ParseInterval parses a refresh interval. It accepts Go durations such as
// "500ms" or "2s"; a bare number is taken as milliseconds.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid interval", s),
			"Try something like 500ms, 2s, or 1500.")
	}
	return d, nil
}
