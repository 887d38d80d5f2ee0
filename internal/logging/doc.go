// Package logging provides structured logging for the Orion kiosk.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used across the controller: navigation events, standby
// transitions, inbound telemetry and external command execution.
//
// # Log Levels
//
//   - Debug: gesture codes, raw telemetry sizes, nmcli invocations
//   - Info: menu transitions, standby/wake, service start/stop
//   - Warn: dropped messages, degraded collectors, reconnects
//   - Error: hardware faults, render failures, recovered panics
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// When no level is given and ORION_LOG_LEVEL is unset the logger is a no-op,
// which keeps one-shot CLI commands quiet.
package logging
