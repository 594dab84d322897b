// Package log provides structured logging with corpus context.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for the generation path (structured fields)
//   - SugaredLogger: Printf-style logging for CLI surfaces
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/justapithecus/corpusgen/types"
)

// Logger provides structured logging with corpus context.
// All log entries include the output path, and the scenario name for batch runs.
type Logger struct {
	zap    *zap.Logger
	level  zap.AtomicLevel
	fields []zap.Field
}

// SugaredLogger provides printf-style logging for CLI surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a debug-level logger with corpus context.
// Output defaults to os.Stderr.
func NewLogger(meta *types.CorpusMeta) *Logger {
	return newLoggerWithWriter(contextFields(meta), os.Stderr, zap.NewAtomicLevelAt(zapcore.DebugLevel))
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// WithOutput returns a new logger with a different output writer.
// The level is shared with the original logger.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	return newLoggerWithWriter(l.fields, w, l.level)
}

// ForCorpus returns a logger writing to the same place with a new corpus context.
func (l *Logger) ForCorpus(meta *types.CorpusMeta) *Logger {
	return &Logger{
		zap:    l.zap.With(contextFields(meta)...),
		level:  l.level,
		fields: append(append([]zap.Field{}, l.fields...), contextFields(meta)...),
	}
}

// SetLevel changes the minimum level ("debug", "info", "warn", "error").
func (l *Logger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.level.SetLevel(lvl)
	return nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// newLoggerWithWriter creates a logger writing JSON lines to w.
func newLoggerWithWriter(fields []zap.Field, w io.Writer, level zap.AtomicLevel) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		level,
	)
	return &Logger{
		zap:    zap.New(core).With(fields...),
		level:  level,
		fields: fields,
	}
}

func contextFields(meta *types.CorpusMeta) []zap.Field {
	if meta == nil {
		return nil
	}
	fields := []zap.Field{zap.String("output", meta.Output)}
	if meta.Scenario != nil {
		fields = append(fields, zap.String("scenario", *meta.Scenario))
	}
	return fields
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Exception logs a recovered runtime fault together with its stack.
func (l *Logger) Exception(message string, recovered any, stack []byte) {
	l.zap.Error(message,
		zap.String("panic", fmt.Sprint(recovered)),
		zap.ByteString("stack", stack),
	)
}

// DebugEnabled reports whether debug entries are currently written.
func (l *Logger) DebugEnabled() bool {
	return l.zap.Core().Enabled(zapcore.DebugLevel)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
