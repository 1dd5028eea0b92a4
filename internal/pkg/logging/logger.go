// Package logging builds the shared zap logger and moves it through contexts
// so every layer logs with the same service fields and trace identifiers.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Trace identifiers for log lines emitted outside any request, such as
// startup, shutdown, and background workers.
const (
	SystemTraceID = "system"
	SystemSpanID  = "system"
)

// NewLogger builds the JSON production logger. Every line carries the service
// and env fields. Set LOG_FILE to additionally mirror output into a file.
func NewLogger(service, env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.InitialFields = map[string]any{
		"service": service,
		"env":     env,
	}

	if path := os.Getenv("LOG_FILE"); path != "" {
		if err := touchLogFile(path); err != nil {
			return nil, fmt.Errorf("logging: prepare log file: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, path)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, path)
	}

	return cfg.Build()
}

// MustNewLogger panics when the logger cannot be built. Intended for main.
func MustNewLogger(service, env string) *zap.Logger {
	logger, err := NewLogger(service, env)
	if err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return logger
}

// WithTrace attaches trace_id and span_id fields. Empty identifiers become
// "unknown" so the fields are always present for log pipelines that key on
// them.
func WithTrace(logger *zap.Logger, traceID, spanID string) *zap.Logger {
	if logger == nil {
		logger = zap.L()
	}
	if traceID == "" {
		traceID = "unknown"
	}
	if spanID == "" {
		spanID = "unknown"
	}
	return logger.With(
		zap.String("trace_id", traceID),
		zap.String("span_id", spanID),
	)
}

// touchLogFile creates the file and its parent directory so zap can open it.
func touchLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
