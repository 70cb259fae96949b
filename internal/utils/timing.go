package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowOperationThreshold is the duration above which OperationTimer warns.
const SlowOperationThreshold = 10 * time.Second

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func Refresh() {
//	    defer utils.OperationTimer("quote_refresh", log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() time.Duration {
	start := time.Now()

	return func() time.Duration {
		duration := time.Since(start)

		if duration > SlowOperationThreshold {
			log.Warn().
				Str("operation", operation).
				Dur("duration_ms", duration).
				Msg("Slow operation detected")
		} else {
			log.Debug().
				Str("operation", operation).
				Dur("duration_ms", duration).
				Msg("Operation completed")
		}

		return duration
	}
}
