package renderer

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by the renderer and handed to the buffers, batches and index
// provider it creates. By default nothing is logged. Pass nil to restore the silent default.
//
// Log levels used:
//   - slog.LevelDebug: buffer allocation, index buffer regeneration, idle reclamation, batch rotation
//   - slog.LevelInfo: adapter and surface setup
//   - slog.LevelWarn: draws issued outside a frame
//   - slog.LevelError: failed end-of-frame flushes
//
// Parameters:
//   - l: the logger
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current renderer logger. Safe for concurrent use.
//
// Returns:
//   - *slog.Logger: the logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
