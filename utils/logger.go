package utils

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// LogOptions controls where the global logger writes
type LogOptions struct {
	Debug       bool
	LogFile     string
	ErrorFile   string
	Development bool
}

// InitLogger initializes the global logger instance. Only the first call has effect.
func InitLogger(opts LogOptions) *zap.Logger {
	once.Do(func() {
		config := zap.NewProductionConfig()
		if opts.Debug {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		if opts.Development {
			config.Encoding = "console"
			config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}

		config.OutputPaths = []string{"stdout"}
		if opts.LogFile != "" {
			config.OutputPaths = append(config.OutputPaths, opts.LogFile)
		}
		config.ErrorOutputPaths = []string{"stderr"}
		if opts.ErrorFile != "" {
			config.ErrorOutputPaths = append(config.ErrorOutputPaths, opts.ErrorFile)
		}

		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.StacktraceKey = "stacktrace"

		logger, err := config.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
		if err != nil {
			panic(err)
		}

		log = logger
	})

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		return InitLogger(LogOptions{})
	}
	return log
}

// Component returns a child of the global logger tagged with a component name
func Component(name string) *zap.Logger {
	return GetLogger().Named(name)
}

// CleanupLogger flushes any buffered log entries
func CleanupLogger() {
	if log != nil {
		_ = log.Sync()
	}
}
