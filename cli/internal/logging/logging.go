// Package logging builds the zap logger used by the CLI: a console or JSON
// core on stderr, plus an optional JSON core writing to a rotating file.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Formats accepted by Options.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Rotation defaults for the log file.
const (
	_defaultMaxSizeMB  = 10
	_defaultMaxBackups = 3
	_defaultMaxAgeDays = 28
)

// Options configures New. Zero values mean: level warn, console format, no
// file.
type Options struct {
	Level  string
	Format string
	// File, when set, receives JSON logs rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Name is the root logger name.
	Name string
}

// New returns a logger writing to console and, when opts.File is set, to the
// rotating file. The returned close function flushes and closes the file.
func New(opts Options, console io.Writer) (*zap.Logger, func() error, error) {
	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, nil, fmt.Errorf("logging: invalid level %q: %w", opts.Level, err)
		}
	}
	enc, err := encoder(opts.Format)
	if err != nil {
		return nil, nil, err
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(console)), level)}
	closeFn := func() error { return nil }
	if opts.File != "" {
		rot := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, _defaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, _defaultMaxBackups),
			MaxAge:     orDefault(opts.MaxAgeDays, _defaultMaxAgeDays),
			Compress:   true,
		}
		fileEnc, _ := encoder(FormatJSON)
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(rot), level))
		closeFn = rot.Close
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel))
	if opts.Name != "" {
		logger = logger.Named(opts.Name)
	}
	return logger, func() error {
		_ = logger.Sync()
		return closeFn()
	}, nil
}

func encoder(format string) (zapcore.Encoder, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	switch strings.ToLower(format) {
	case "", FormatConsole:
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	case FormatJSON:
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("logging: invalid format %q (want console or json)", format)
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
