// Package config provides wpcc-triage configuration with a defined load order:
// CLI flags > environment variables > project config > global config > defaults.
//
// Paths:
//   - Project: .wpcc/triage.toml (relative to the project root)
//   - Global: XDG config dir, e.g. ~/.config/wpcc-triage/config.toml (see os.UserConfigDir)
//
// Environment variables (override config files when set):
//   - WPCC_TRIAGE_MAX_FINDINGS, WPCC_TRIAGE_WORKERS (non-negative integers).
//   - WPCC_TRIAGE_LOG_LEVEL (debug, info, warn, error), WPCC_TRIAGE_LOG_FORMAT (console, json),
//     WPCC_TRIAGE_LOG_FILE (rotating JSON log file; empty disables).
//   - WPCC_TRIAGE_STATE_DIR (history location; default <root>/.wpcc).
//   - WPCC_TRIAGE_HISTORY_ENABLED (1/true/yes/on = true, 0/false/no/off = false).
//   - WPCC_TRIAGE_HISTORY_MAX_RECORDS (records kept in the active history file before rotation).
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"wpcc/cli/internal/erruser"
)

// Config holds all wpcc-triage configuration. An empty StateDir means
// "<root>/.wpcc".
type Config struct {
	// MaxFindings caps how many recognized findings one run triages. Default 200.
	MaxFindings int `toml:"max_findings"`
	// Workers > 1 classifies findings in parallel. Default 1.
	Workers   int    `toml:"workers"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`
	StateDir  string `toml:"state_dir"`
	// HistoryEnabled appends one record per annotate run. Default true.
	HistoryEnabled bool `toml:"history_enabled"`
	// HistoryMaxRecords is the active history size before rotation (0 = never rotate). Default 1000.
	HistoryMaxRecords int `toml:"history_max_records"`
}

// Overrides represents optional CLI flag overrides. Non-nil pointer means
// "override with this value".
type Overrides struct {
	MaxFindings    *int
	Workers        *int
	LogLevel       *string
	LogFormat      *string
	LogFile        *string
	StateDir       *string
	HistoryEnabled *bool
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// ProjectRoot is the scanned project's root; if set, project config is ProjectRoot/.wpcc/triage.toml.
	ProjectRoot string
	// GlobalConfigPath is the global config file path; if empty, XDG path is used.
	GlobalConfigPath string
	// Env is the environment key=value slice; if nil, os.Environ() is used.
	Env []string
	// Overrides are applied last (highest precedence).
	Overrides *Overrides
}

const (
	_defaultMaxFindings       = 200
	_defaultWorkers           = 1
	_defaultLogLevel          = "warn"
	_defaultLogFormat         = "console"
	_defaultHistoryMaxRecords = 1000
)

// ProjectConfigPath is the project config file relative to the root.
var ProjectConfigPath = filepath.Join(".wpcc", "triage.toml")

var validLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

var validLogFormats = map[string]struct{}{
	"console": {}, "json": {},
}

func normalizeChoice(s string, valid map[string]struct{}) (string, bool) {
	norm := strings.TrimSpace(strings.ToLower(s))
	_, ok := valid[norm]
	return norm, ok
}

// errIntOverflow is returned when an int64 value does not fit in int.
var errIntOverflow = errors.New("value out of range for int")

func int64ToInt(n int64) (int, error) {
	if n < int64(math.MinInt) || n > int64(math.MaxInt) {
		return 0, errIntOverflow
	}
	return int(n), nil
}

// DefaultConfig returns the default configuration (no I/O).
func DefaultConfig() Config {
	return Config{
		MaxFindings:       _defaultMaxFindings,
		Workers:           _defaultWorkers,
		LogLevel:          _defaultLogLevel,
		LogFormat:         _defaultLogFormat,
		HistoryEnabled:    true,
		HistoryMaxRecords: _defaultHistoryMaxRecords,
	}
}

// EffectiveStateDir returns the directory for history and lock files.
// If StateDir is set, it is returned as-is; otherwise root/.wpcc is returned.
func (c Config) EffectiveStateDir(root string) string {
	if c.StateDir != "" {
		return c.StateDir
	}
	return filepath.Join(root, ".wpcc")
}

// Load loads configuration with precedence: defaults < global file < project file < env < overrides.
// Missing config files are ignored. Invalid TOML or invalid env values return an error.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, erruser.New("Could not determine config directory.", err)
		}
		globalPath = filepath.Join(dir, "wpcc-triage", "config.toml")
	}
	if err := mergeFile(&cfg, globalPath); err != nil {
		return nil, err
	}

	if opts.ProjectRoot != "" {
		if err := mergeFile(&cfg, filepath.Join(opts.ProjectRoot, ProjectConfigPath)); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}

	if err := applyOverrides(&cfg, opts.Overrides); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFile reads path and merges into cfg. Only keys present in the file
// overwrite; a missing file is skipped.
func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return erruser.New("Invalid configuration file.", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return erruser.New("Could not read configuration file.", err)
	}
	var file struct {
		MaxFindings       *int64  `toml:"max_findings"`
		Workers           *int64  `toml:"workers"`
		LogLevel          *string `toml:"log_level"`
		LogFormat         *string `toml:"log_format"`
		LogFile           *string `toml:"log_file"`
		StateDir          *string `toml:"state_dir"`
		HistoryEnabled    *bool   `toml:"history_enabled"`
		HistoryMaxRecords *int64  `toml:"history_max_records"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return erruser.New(fmt.Sprintf("Invalid configuration in %s.", path), err)
	}
	if file.MaxFindings != nil {
		if *file.MaxFindings < 0 {
			return erruser.New("Configuration max_findings must be non-negative.", nil)
		}
		v, err := int64ToInt(*file.MaxFindings)
		if err != nil {
			return erruser.New("Configuration max_findings value out of range.", err)
		}
		cfg.MaxFindings = v
	}
	if file.Workers != nil && *file.Workers > 0 {
		v, err := int64ToInt(*file.Workers)
		if err != nil {
			return erruser.New("Configuration workers value out of range.", err)
		}
		cfg.Workers = v
	}
	if file.LogLevel != nil && *file.LogLevel != "" {
		norm, ok := normalizeChoice(*file.LogLevel, validLogLevels)
		if !ok {
			return erruser.New("Configuration log_level must be debug, info, warn or error.", nil)
		}
		cfg.LogLevel = norm
	}
	if file.LogFormat != nil && *file.LogFormat != "" {
		norm, ok := normalizeChoice(*file.LogFormat, validLogFormats)
		if !ok {
			return erruser.New("Configuration log_format must be console or json.", nil)
		}
		cfg.LogFormat = norm
	}
	if file.LogFile != nil {
		cfg.LogFile = *file.LogFile
	}
	if file.StateDir != nil && *file.StateDir != "" {
		cfg.StateDir = *file.StateDir
	}
	if file.HistoryEnabled != nil {
		cfg.HistoryEnabled = *file.HistoryEnabled
	}
	if file.HistoryMaxRecords != nil && *file.HistoryMaxRecords >= 0 {
		v, err := int64ToInt(*file.HistoryMaxRecords)
		if err != nil {
			return erruser.New("Configuration history_max_records value out of range.", err)
		}
		cfg.HistoryMaxRecords = v
	}
	return nil
}

// env key names for config
const (
	envMaxFindings       = "WPCC_TRIAGE_MAX_FINDINGS"
	envWorkers           = "WPCC_TRIAGE_WORKERS"
	envLogLevel          = "WPCC_TRIAGE_LOG_LEVEL"
	envLogFormat         = "WPCC_TRIAGE_LOG_FORMAT"
	envLogFile           = "WPCC_TRIAGE_LOG_FILE"
	envStateDir          = "WPCC_TRIAGE_STATE_DIR"
	envHistoryEnabled    = "WPCC_TRIAGE_HISTORY_ENABLED"
	envHistoryMaxRecords = "WPCC_TRIAGE_HISTORY_MAX_RECORDS"
)

func envInt(vals map[string]string, key string) (int, bool, error) {
	v, ok := vals[key]
	if !ok || v == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, erruser.New(key+" must be a valid number.", err)
	}
	if n < 0 {
		return 0, false, erruser.New(key+" must be non-negative.", nil)
	}
	i, err := int64ToInt(n)
	if err != nil {
		return 0, false, erruser.New(key+" value out of range.", err)
	}
	return i, true, nil
}

func applyEnv(cfg *Config, env []string) error {
	vals := make(map[string]string)
	for _, e := range env {
		idx := strings.Index(e, "=")
		if idx <= 0 {
			continue
		}
		vals[strings.TrimSpace(e[:idx])] = strings.TrimSpace(e[idx+1:])
	}
	if n, ok, err := envInt(vals, envMaxFindings); err != nil {
		return err
	} else if ok {
		cfg.MaxFindings = n
	}
	if n, ok, err := envInt(vals, envWorkers); err != nil {
		return err
	} else if ok && n > 0 {
		cfg.Workers = n
	}
	if v, ok := vals[envLogLevel]; ok && v != "" {
		norm, valid := normalizeChoice(v, validLogLevels)
		if !valid {
			return erruser.New(envLogLevel+" must be debug, info, warn or error.", nil)
		}
		cfg.LogLevel = norm
	}
	if v, ok := vals[envLogFormat]; ok && v != "" {
		norm, valid := normalizeChoice(v, validLogFormats)
		if !valid {
			return erruser.New(envLogFormat+" must be console or json.", nil)
		}
		cfg.LogFormat = norm
	}
	if v, ok := vals[envLogFile]; ok {
		cfg.LogFile = v
	}
	if v, ok := vals[envStateDir]; ok {
		cfg.StateDir = v
	}
	if v, ok := vals[envHistoryEnabled]; ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return erruser.New(envHistoryEnabled+" must be 1/true/yes/on or 0/false/no/off.", err)
		}
		cfg.HistoryEnabled = b
	}
	if n, ok, err := envInt(vals, envHistoryMaxRecords); err != nil {
		return err
	} else if ok {
		cfg.HistoryMaxRecords = n
	}
	return nil
}

// parseBool parses common boolean env values: 1/true/yes/on = true, 0/false/no/off = false (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func applyOverrides(cfg *Config, o *Overrides) error {
	if o == nil {
		return nil
	}
	if o.MaxFindings != nil {
		if *o.MaxFindings < 0 {
			return erruser.New("--max-findings must be non-negative.", nil)
		}
		cfg.MaxFindings = *o.MaxFindings
	}
	if o.Workers != nil && *o.Workers > 0 {
		cfg.Workers = *o.Workers
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		norm, ok := normalizeChoice(*o.LogLevel, validLogLevels)
		if !ok {
			return erruser.New("Invalid log level; use debug, info, warn or error.", nil)
		}
		cfg.LogLevel = norm
	}
	if o.LogFormat != nil && *o.LogFormat != "" {
		norm, ok := normalizeChoice(*o.LogFormat, validLogFormats)
		if !ok {
			return erruser.New("Invalid log format; use console or json.", nil)
		}
		cfg.LogFormat = norm
	}
	if o.LogFile != nil {
		cfg.LogFile = *o.LogFile
	}
	if o.StateDir != nil {
		cfg.StateDir = *o.StateDir
	}
	if o.HistoryEnabled != nil {
		cfg.HistoryEnabled = *o.HistoryEnabled
	}
	return nil
}
