package logger

import "log/slog"

// Standard field keys for structured logging, used consistently across the
// poller, worker pool, staging store, and catalog client.
const (
	KeyCycleID    = "cycle_id"
	KeyBlockName  = "block"
	KeyDas        = "das"
	KeyLocation   = "location"
	KeyWorkflow   = "workflow"
	KeyNFiles     = "n_files"
	KeyNEvents    = "n_events"
	KeySizeBytes  = "size_bytes"
	KeyStatus     = "status"
	KeyOutcome    = "outcome"
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyWorkerID   = "worker_id"
	KeyAttempt    = "attempt"
)

// BlockName returns a slog.Attr for a block name.
func BlockName(name string) slog.Attr {
	return slog.String(KeyBlockName, name)
}

// Das returns a slog.Attr for a dataset-algorithm identifier.
func Das(das string) slog.Attr {
	return slog.String(KeyDas, das)
}

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
