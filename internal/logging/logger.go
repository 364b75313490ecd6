// Package logging wraps zerolog with key/value call sites and context helpers.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with key/value variadic methods.
type Logger struct {
	zl     zerolog.Logger
	fields map[string]interface{} // attached by With
}

var global = NewDevelopment()

// NewProduction creates a JSON logger at info level on stdout.
func NewProduction() *Logger {
	return NewWithWriter(os.Stdout, zerolog.InfoLevel)
}

// NewDevelopment creates a console logger at debug level on stdout.
func NewDevelopment() *Logger {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return NewWithWriter(out, zerolog.DebugLevel)
}

// NewNop creates a logger that discards everything. Used by tests and the CLI's quiet mode.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// NewWithWriter creates a logger writing to w at the given level.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// SetGlobal replaces the process-wide logger.
func SetGlobal(logger *Logger) {
	global = logger
}

// Global returns the process-wide logger.
func Global() *Logger {
	return global
}

// write attaches stored fields and the k/v pairs to e and emits it.
// Errors are rendered through Error() so they survive JSON encoding.
func (l *Logger) write(e *zerolog.Event, msg string, kv []interface{}) {
	if e == nil {
		return
	}
	for k, v := range l.fields {
		e.Interface(k, v)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, isErr := kv[i+1].(error); isErr {
			e.AnErr(key, err)
			continue
		}
		e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.write(l.zl.Debug(), msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.write(l.zl.Info(), msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.write(l.zl.Warn(), msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.write(l.zl.Error(), msg, kv) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.write(l.zl.Fatal(), msg, kv) }

// With returns a child logger that adds the k/v pairs to every entry.
func (l *Logger) With(kv ...interface{}) *Logger {
	fields := make(map[string]interface{}, len(l.fields)+len(kv)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			fields[key] = kv[i+1]
		}
	}
	return &Logger{zl: l.zl, fields: fields}
}

// WithContext returns a child logger carrying the request and run ids stored in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	kv := contextFields(ctx)
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

func Debug(msg string, kv ...interface{}) { global.Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { global.Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { global.Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { global.Error(msg, kv...) }
func Fatal(msg string, kv ...interface{}) { global.Fatal(msg, kv...) }
