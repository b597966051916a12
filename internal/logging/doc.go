// Package logging provides structured logging for axectl.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the tool. Logging is silent by default so that
// command output (tables, JSON) stays clean; set AXECTL_LOG_LEVEL to enable
// diagnostic output on stderr.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (per-host probes, mDNS entries)
//   - Info: Normal operations (discovery stages, monitor ticks)
//   - Warn: Non-fatal issues (alerts, cache write failures, retries)
//   - Error: Fatal issues (startup failures, critical errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device discovered",
//	    zap.String("ip", "192.168.1.100"),
//	    zap.String("hostname", "bitaxe-01"),
//	    zap.String("source", "mdns"),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
//	logging.LogProbe(addr, reachable, elapsed)
//	logging.LogDiscoveryStage("scan", found, elapsed)
//	logging.LogAlert(deviceIP, "temperature", msg)
//
// # Configuration
//
// Initialize logging at command startup:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
