package common

import (
	"log/slog"
	"time"
)

// Timed runs an operation and returns its duration alongside its error,
// logging the outcome either way. It replaces decorator-style timing: the
// call site wraps the unit of work explicitly.
func Timed(name string, operation func() error) (time.Duration, error) {
	start := time.Now()
	err := operation()
	elapsed := time.Since(start)

	if err != nil {
		slog.Error("Operation failed",
			"operation", name,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
	} else {
		slog.Debug("Operation completed",
			"operation", name,
			"duration_ms", elapsed.Milliseconds())
	}

	return elapsed, err
}
