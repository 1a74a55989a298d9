package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the global logger instance
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
		Prefix:          "reportgen",
	})
)

// Config holds logger configuration
type Config struct {
	Debug bool
	// Dir enables a rotating log file under Dir when set
	Dir string
	// Quiet silences stderr unless Debug is set; the CLI uses it so log
	// lines do not interleave with the terminal form.
	Quiet  bool
	Prefix string
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	var writers []io.Writer
	if !cfg.Quiet || cfg.Debug {
		writers = append(writers, os.Stderr)
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "reportgen.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	var writer io.Writer = io.Discard
	if len(writers) > 0 {
		writer = io.MultiWriter(writers...)
	}

	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "reportgen"
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          prefix,
	})
	return nil
}

// Writer returns the destination gin's request logger should write to
func Writer() io.Writer {
	return Logger.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel}).Writer()
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

// Fatal logs a fatal error and exits
func Fatal(msg string, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
	os.Exit(1)
}
