// Package logging builds the zap loggers used by the CLI and the API server.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	// Verbose lowers the console level to debug.
	Verbose bool
	// JSON switches the console encoder to JSON (server deployments).
	JSON bool
	// File enables a rotated JSON log file when non-empty.
	File string
	// Console overrides the console sink. Defaults to stderr.
	Console io.Writer
}

// Rotation limits for the log file.
const (
	maxSizeMB  = 10
	maxBackups = 5
	maxAgeDays = 30
)

// New builds a logger with a console core and, when opts.File is set, a JSON
// file core rotated by lumberjack.
func New(opts Options) *zap.Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleLevel := zap.InfoLevel
	if opts.Verbose {
		consoleLevel = zap.DebugLevel
	}

	jsonEncoder := zapcore.NewJSONEncoder(fileEncoderConfig())
	var consoleEncoder zapcore.Encoder
	if opts.JSON {
		consoleEncoder = jsonEncoder
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		consoleEncoder = zapcore.NewConsoleEncoder(cfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(console)), consoleLevel),
	}
	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(newRotator(opts.File)), zap.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func newRotator(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}
