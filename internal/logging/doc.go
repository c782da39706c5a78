// Package logging provides structured logging for the homeclock shell.
//
// The package wraps Go's log/slog with a JSON handler and a small set of
// persistent attributes so that every line emitted by the widget
// coordinator can be correlated with the provider and clock family it
// concerns.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/homeclock", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("clock attached", "package", pkg)
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	famLogger := logger.WithFamily("dbox")
//	provLogger := famLogger.WithProvider("org.example.clock.dbox")
//	provLogger.Warn("provider faulted", "retry_left", 1)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"provider faulted","family":"dbox","provider_id":"org.example.clock.dbox","retry_left":1}
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a buffer
// when a test needs to inspect what was logged.
package logging
