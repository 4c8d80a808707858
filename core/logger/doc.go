// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports a console encoding for
// interactive use and a JSON encoding for runs triggered by the OS scheduler,
// whose output usually ends up in a log file.
//
// # Correlation
//
// Every sync or resync run is tagged with a run_id (WithRunID) so that the lines
// of one periodic invocation can be picked out of a shared log. Requests served by
// the status API carry a request_id (WithRequestID).
//
// # Configuration
//
//   - Level: debug, info, warn, error
//   - Format: json or console
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	l := logger.WithRunID(log, runID)
//	l.Error("Sync failed", zap.Error(err))
package logger
