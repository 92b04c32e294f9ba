// Package common holds process-wide helpers shared by the commands.
package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const timeFormat = "15:04:05"

// LogOptions selects the level and writers of the process logger.
type LogOptions struct {
	Level   string
	Outputs []string // "console", "file"
	File    string
}

// NewLogger builds the arbor logger described by cfg. Console output goes to
// stderr so that preview output on stdout stays clean.
func NewLogger(cfg LogOptions) arbor.ILogger {
	logger := arbor.NewLogger()

	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
	}

	for _, out := range outputs {
		switch out {
		case "console", "stdout", "stderr":
			logger = logger.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: timeFormat,
			})
		case "file":
			file := cfg.File
			if file == "" {
				file = filepath.Join("logs", "daybreak.log")
			}
			if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   file,
				TimeFormat: timeFormat,
				MaxSize:    10 * 1024 * 1024,
				MaxBackups: 5,
				OutputType: models.OutputFormatLogfmt,
			})
		}
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}

// WithRunID tags logger with a fresh correlation id and returns both.
func WithRunID(logger arbor.ILogger) (arbor.ILogger, string) {
	id := uuid.NewString()
	return logger.WithCorrelationId(id), id
}
