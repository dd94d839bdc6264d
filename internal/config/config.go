package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/timelog/internal/timeframe"
	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
)

// Environment overrides.
const (
	EnvDBPath       = "TIMELOG_DB"
	EnvDBDriver     = "TIMELOG_DB_DRIVER"
	EnvDayStart     = "TIMELOG_DAY_START"
	EnvFactMinDelta = "TIMELOG_FACT_MIN_DELTA"
)

const (
	defaultDriver       = "sqlite"
	defaultDayStart     = "00:00:00"
	defaultFactMinDelta = "1"
)

type ResolvedValue struct {
	Value  string      `json:"value" yaml:"value"`
	Source ValueSource `json:"source" yaml:"source"`
	From   string      `json:"from,omitempty" yaml:"from,omitempty"`
}

// ResolveOptions carries the config file location and command line overrides.
type ResolveOptions struct {
	ConfigPath      string
	CLIDBPath       string
	CLIDBDriver     string
	CLIDayStart     string
	CLIFactMinDelta string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBDriver     ResolvedValue `json:"db_driver"`
	DBPath       ResolvedValue `json:"db_path"`
	DayStart     ResolvedValue `json:"day_start"`
	FactMinDelta ResolvedValue `json:"fact_min_delta"`
}

type fileConfig struct {
	DB struct {
		Driver string `yaml:"driver,omitempty"`
		Path   string `yaml:"path,omitempty"`
	} `yaml:"db"`
	DayStart     string `yaml:"day_start,omitempty"`
	FactMinDelta string `yaml:"fact_min_delta,omitempty"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".timelog", "config.yaml")
}

func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".timelog", "timelog.db")
}

// ResolveConfig layers defaults, the config file, the environment and the
// command line, in increasing priority.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath:   path,
		DBDriver:     ResolvedValue{Value: defaultDriver, Source: SourceDefault},
		DBPath:       ResolvedValue{Value: DefaultDBPath(), Source: SourceDefault},
		DayStart:     ResolvedValue{Value: defaultDayStart, Source: SourceDefault},
		FactMinDelta: ResolvedValue{Value: defaultFactMinDelta, Source: SourceDefault},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBDriver, cfg.DB.Driver, SourceConfig, path)
		apply(&out.DBPath, expandHome(cfg.DB.Path), SourceConfig, path)
		apply(&out.DayStart, cfg.DayStart, SourceConfig, path)
		apply(&out.FactMinDelta, cfg.FactMinDelta, SourceConfig, path)
	}

	apply(&out.DBDriver, os.Getenv(EnvDBDriver), SourceEnv, EnvDBDriver)
	apply(&out.DBPath, expandHome(os.Getenv(EnvDBPath)), SourceEnv, EnvDBPath)
	apply(&out.DayStart, os.Getenv(EnvDayStart), SourceEnv, EnvDayStart)
	apply(&out.FactMinDelta, os.Getenv(EnvFactMinDelta), SourceEnv, EnvFactMinDelta)

	apply(&out.DBDriver, opts.CLIDBDriver, SourceCLI, "--db-driver")
	apply(&out.DBPath, expandHome(opts.CLIDBPath), SourceCLI, "--db")
	apply(&out.DayStart, opts.CLIDayStart, SourceCLI, "--day-start")
	apply(&out.FactMinDelta, opts.CLIFactMinDelta, SourceCLI, "--fact-min-delta")

	if _, err := out.DayStartClock(); err != nil {
		return out, err
	}
	if _, err := out.MinDelta(); err != nil {
		return out, err
	}
	return out, nil
}

// DayStartClock parses day_start as "HH:MM" or "HH:MM:SS".
func (c ResolvedConfig) DayStartClock() (time.Time, error) {
	v := strings.TrimSpace(c.DayStart.Value)
	if t, err := time.ParseInLocation("15:04:05", v, time.Local); err == nil {
		return t, nil
	}
	t, kind, err := timeframe.ParseTime(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("day_start (%s): %w", c.DayStart.Source, err)
	}
	if kind != timeframe.KindTime {
		return time.Time{}, fmt.Errorf("day_start (%s): %w", c.DayStart.Source,
			&timeframe.TypeError{Field: "day_start", Expected: timeframe.KindTime, Got: kind})
	}
	return t, nil
}

// MinDelta parses fact_min_delta, given in minutes.
func (c ResolvedConfig) MinDelta() (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.FactMinDelta.Value))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("fact_min_delta (%s): expected a non-negative number of minutes, got %q",
			c.FactMinDelta.Source, c.FactMinDelta.Value)
	}
	return time.Duration(n) * time.Minute, nil
}

// Timeframe returns the completion settings, using now as the clock.
func (c ResolvedConfig) Timeframe(now func() time.Time) (timeframe.Config, error) {
	dayStart, err := c.DayStartClock()
	if err != nil {
		return timeframe.Config{}, err
	}
	return timeframe.Config{DayStart: dayStart, Now: now}, nil
}

// Save writes the config-file-level values of c to its ConfigPath.
func Save(c ResolvedConfig) error {
	var fc fileConfig
	fc.DB.Driver = c.DBDriver.Value
	fc.DB.Path = c.DBPath.Value
	fc.DayStart = c.DayStart.Value
	fc.FactMinDelta = c.FactMinDelta.Value

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.ConfigPath), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(c.ConfigPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func apply(dst *ResolvedValue, value string, source ValueSource, from string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	*dst = ResolvedValue{Value: value, Source: source, From: from}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
