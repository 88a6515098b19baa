// Package logging provides structured logging for the clock firmware.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used by the behaviors, the portal and the time resolver.
//
// # Log Levels
//
//   - Debug: portal requests, raw service responses, tick details
//   - Info: behavior transitions, successful resyncs, startup
//   - Warn: degraded states, failed service calls
//   - Error: startup failures
//
// # Structured Logging
//
//	logging.Info("Time offset resolved",
//	    zap.Int32("offset_seconds", offset),
//	    zap.Int64("epoch", epoch),
//	)
//
// # Configuration
//
//	if err := logging.Initialize("info"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given the NIXIECLOCK_LOG_LEVEL environment variable is
// consulted; if that is empty too the logger is a no-op.
package logging
