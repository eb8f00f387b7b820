package filtergraph

import (
	"log/slog"

	"github.com/gogpu/filtergraph/internal/logx"
)

// SetLogger configures the logger for filtergraph and all its sub-packages.
// By default, filtergraph produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by filtergraph:
//   - [slog.LevelDebug]: internal diagnostics (graph sizes, pipeline
//     compiles, texture pool hits and misses)
//   - [slog.LevelInfo]: important lifecycle events (GPU adapter selected)
//   - [slog.LevelWarn]: non-fatal issues (a shader failed to precompile)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	filtergraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logx.Set(l)
}

// Logger returns the current logger used by filtergraph.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logx.Logger()
}
