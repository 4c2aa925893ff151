package flame

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/flame/internal/cpu"
	"github.com/gogpu/flame/internal/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for flame and its backends.
// By default flame produces no log output. Pass nil to restore silence.
//
// Log levels used by flame:
//   - [slog.LevelDebug]: per-frame pipeline timing, buffer and shader details
//   - [slog.LevelInfo]: lifecycle events (backend chosen, adapter opened)
//   - [slog.LevelWarn]: non-fatal issues (CPU fallback under BackendAuto)
//
// Example:
//
//	flame.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	cpu.SetLogger(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
