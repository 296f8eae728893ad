package llmreplay

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/manishiitg/llm-replay-go/interfaces"
)

// noopLoggerImpl is used when the host supplies no logger
type noopLoggerImpl struct{}

func (n *noopLoggerImpl) Infof(format string, v ...any)             {}
func (n *noopLoggerImpl) Errorf(format string, v ...any)            {}
func (n *noopLoggerImpl) Debugf(format string, args ...interface{}) {}

// DefaultLogger is a simple logger implementation that writes to stdout or a file
type DefaultLogger struct {
	output *os.File
	level  string
}

// NewDefaultLogger creates a new default logger instance
// If logFile is empty, logs to stdout. If logFile is provided, logs to that file.
// level can be "info" or "debug" - debug level enables Debugf output
func NewDefaultLogger(logFile string, level string) (interfaces.Logger, error) {
	output := os.Stdout
	if logFile != "" {
		logDir := filepath.Dir(logFile)
		if logDir != "." && logDir != "" {
			if err := os.MkdirAll(logDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
	}

	if level != "info" && level != "debug" {
		level = "info"
	}

	return &DefaultLogger{
		output: output,
		level:  level,
	}, nil
}

func (l *DefaultLogger) write(level, msg string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.output, "[%s] [%s] %s\n", timestamp, level, msg)
}

// Infof logs an info message
func (l *DefaultLogger) Infof(format string, v ...any) {
	l.write("INFO", fmt.Sprintf(format, v...))
}

// Errorf logs an error message
func (l *DefaultLogger) Errorf(format string, v ...any) {
	l.write("ERROR", fmt.Sprintf(format, v...))
}

// Debugf logs a debug message (only if level is "debug")
func (l *DefaultLogger) Debugf(format string, args ...interface{}) {
	if l.level == "debug" {
		l.write("DEBUG", fmt.Sprintf(format, args...))
	}
}

// Close releases the log file. Stdout is left open.
func (l *DefaultLogger) Close() error {
	if l.output == os.Stdout {
		return nil
	}
	return l.output.Close()
}
