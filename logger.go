package registry

import (
	"io"
	"log/slog"
)

// Log is the package-level logger used throughout the core. It defaults to
// a discard handler so importing this package is silent unless a caller
// (typically cmd/registryd) installs a real handler based on LOG_LEVEL.
var Log = slog.New(slog.NewTextHandler(io.Discard, nil))

// SetLogger replaces the package-level logger. Call once at startup.
func SetLogger(l *slog.Logger) {
	Log = l
}
