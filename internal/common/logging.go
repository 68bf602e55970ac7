// Package common provides shared utilities for storetally
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

// Logger wraps arbor.ILogger to provide a consistent interface
type Logger struct {
	arbor.ILogger
}

// LoggingConfig holds logging configuration. Outputs may name console,
// file, text (plain lines to Writer) or none.
type LoggingConfig struct {
	Level      string    `toml:"level"`
	Outputs    []string  `toml:"outputs"`
	FilePath   string    `toml:"file_path"`
	MaxSizeMB  int       `toml:"max_size_mb"`
	MaxBackups int       `toml:"max_backups"`
	Writer     io.Writer `toml:"-"`
}

const (
	timeFormat      = "2006-01-02T15:04:05Z07:00"
	defaultLogFile  = "logs/storetally.log"
	defaultMaxBytes = 500 * 1024
	defaultBackups  = 20
)

// lineWriter renders arbor's JSON events as "msg k=v" lines. A nil out
// swallows everything.
type lineWriter struct {
	out   io.Writer
	level log.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	if w.out == nil {
		return len(p), nil
	}
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.level {
		return len(p), nil
	}
	var b strings.Builder
	b.WriteString(evt.Message)
	for k, v := range evt.Fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	if evt.Error != "" {
		fmt.Fprintf(&b, " error=%s", evt.Error)
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *lineWriter) WithLevel(level log.Level) writers.IWriter {
	w.level = level
	return w
}

func (w *lineWriter) GetFilePath() string { return "" }
func (w *lineWriter) Close() error        { return nil }

// NewLoggerFromConfig builds a logger from cfg. Every logger except a
// "none" one also keeps a memory writer so run logs can be read back by
// correlation ID.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console", "file"}
	}

	l := arbor.NewLogger()
	for _, out := range outputs {
		switch out {
		case "none":
			// Explicit writers keep a silent logger off the global registry.
			return &Logger{ILogger: l.WithWriters([]writers.IWriter{&lineWriter{}})}
		case "text":
			arbor.RegisterWriter(arbor.WRITER_CONSOLE, &lineWriter{out: cfg.Writer})
		case "console":
			l = l.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: timeFormat,
			})
		case "file":
			l = l.WithFileWriter(fileWriterConfig(cfg))
		}
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	l = l.WithMemoryWriter(models.WriterConfiguration{
		Type: models.LogWriterTypeMemory,
	}).WithLevelFromString(level)

	return &Logger{ILogger: l}
}

func fileWriterConfig(cfg LoggingConfig) models.WriterConfiguration {
	wc := models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   cfg.FilePath,
		MaxSize:    int64(cfg.MaxSizeMB) * 1024 * 1024,
		MaxBackups: cfg.MaxBackups,
		TimeFormat: timeFormat,
	}
	if wc.FileName == "" {
		wc.FileName = defaultLogFile
	}
	if wc.MaxSize <= 0 {
		wc.MaxSize = defaultMaxBytes
	}
	if wc.MaxBackups <= 0 {
		wc.MaxBackups = defaultBackups
	}
	return wc
}

// NewLoggerWithOutput creates a logger writing text lines to w.
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	return NewLoggerFromConfig(LoggingConfig{Level: level, Outputs: []string{"text"}, Writer: w})
}

// NewSilentLogger creates a logger that discards all output.
func NewSilentLogger() *Logger {
	return NewLoggerFromConfig(LoggingConfig{Outputs: []string{"none"}})
}

// WithCorrelationId returns a new Logger tagged with a correlation ID, used to
// trace one collection run or HTTP request.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}
