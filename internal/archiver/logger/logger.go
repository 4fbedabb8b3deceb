package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
)

// LogConfig controls the global logger: a console sink on stderr plus
// optional debug/info file sinks for post-run triage.
type LogConfig struct {
	Level        string // level for file sinks (debug, info, warn, error)
	ConsoleLevel string // level for the stderr sink
	DebugFile    string // optional path receiving Level and above as JSON
	InfoFile     string // optional path receiving info and above as JSON
	Development  bool   // human-oriented encoder with caller info
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger initializes the global sugared logger from cfg.
// File sinks are opened in append mode; a sink that cannot be opened fails
// initialization rather than silently dropping output.
func InitLogger(cfg LogConfig) error {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEnc := zapcore.NewConsoleEncoder(encCfg)
	jsonEnc := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), parseLevel(cfg.ConsoleLevel)),
	}

	if cfg.DebugFile != "" {
		f, err := os.OpenFile(cfg.DebugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(jsonEnc, zapcore.AddSync(f), parseLevel(cfg.Level)))
	}
	if cfg.InfoFile != "" {
		f, err := os.OpenFile(cfg.InfoFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		lvl := parseLevel(cfg.Level)
		if lvl < zapcore.InfoLevel {
			lvl = zapcore.InfoLevel
		}
		cores = append(cores, zapcore.NewCore(jsonEnc, zapcore.AddSync(f), lvl))
	}

	opts := []zap.Option{}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}

	z := zap.New(zapcore.NewTee(cores...), opts...)
	logger = z.Sugar()
	return nil
}

// L returns the global sugared logger.
// If InitLogger has not been called, it initializes with defaults.
func L() *zap.SugaredLogger {
	if logger == nil {
		_ = InitLogger(LogConfig{})
	}
	return logger
}

// Sync flushes buffered log entries. Safe to call before exit.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
