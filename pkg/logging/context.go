package logging

import (
	"log/slog"
)

// WithRun creates a logger scoped to one simulation run.
//
//	log := logging.WithRun(runID, "occ")
//	log.Info("run finished", "committed", 3)
func WithRun(runID, algorithm string) *slog.Logger {
	return GetLogger().With("run_id", runID, "algorithm", algorithm)
}

// WithTx creates a logger with transaction context.
func WithTx(txID int) *slog.Logger {
	return GetLogger().With("tx_id", txID)
}

// WithResource creates a logger with data item context.
func WithResource(resource string) *slog.Logger {
	return GetLogger().With("resource", resource)
}

// WithLock creates a logger with lock context.
//
//	log := logging.WithLock(txID, "A")
//	log.Debug("lock granted", "mode", "exclusive")
func WithLock(txID int, resource string) *slog.Logger {
	return GetLogger().With("tx_id", txID, "resource", resource)
}

// WithComponent creates a logger with component/subsystem context.
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithRequest creates a logger for one HTTP request.
func WithRequest(requestID, route string) *slog.Logger {
	return GetLogger().With("request_id", requestID, "route", route)
}

// WithError creates a logger with error context.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
