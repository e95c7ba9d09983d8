package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options control the daemon logger.
type Options struct {
	Session string
	// User is the conversation key the daemon polls as.
	User  string
	Debug bool
}

// New creates a zap logger that writes JSON to logPath and console lines
// to stderr. Session, user and PID are attached to every entry.
func New(logPath string, opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	jsonEncoder := zapcore.NewJSONEncoder(encoderCfg)
	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	fileCore := zapcore.NewCore(jsonEncoder, zapcore.AddSync(file), level)
	// Silent poll failures log at debug; keep the terminal quiet unless asked.
	stderrCore := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), zapcore.InfoLevel)

	core := zapcore.NewTee(fileCore, stderrCore)

	fields := []zap.Field{
		zap.String("session", opts.Session),
		zap.Int("pid", os.Getpid()),
	}
	if opts.User != "" {
		fields = append(fields, zap.String("user", opts.User))
	}
	return zap.New(core, zap.Fields(fields...)), nil
}
