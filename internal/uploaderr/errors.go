// Package uploaderr provides error types and error codes for the uploader.
// This is a leaf package with no internal dependencies so it can be imported
// by the block, stagingstore, catalog, workerpool, and poller packages
// without causing import cycles.
package uploaderr

import "fmt"

// Kind identifies the category of failure produced while packing, staging,
// or uploading a block.
type Kind int

const (
	// KindDuplicate indicates the remote catalog reported the block or file
	// already exists. Treated as a successful upload.
	KindDuplicate Kind = iota + 1

	// KindAmbiguous indicates the remote catalog returned an error that
	// cannot be classified as success or failure (for example a response
	// from an intermediate proxy rather than the catalog itself). The block
	// is deferred to an existence probe on the next cycle.
	KindAmbiguous

	// KindUploadFailed indicates a definite upload failure. The block stays
	// Pending and is retried on a later cycle.
	KindUploadFailed

	// KindStagingFailure indicates the staging store (database) returned an
	// unexpected error while reading or writing uploader state.
	KindStagingFailure

	// KindQueueDrainTimeout indicates the completion queue produced no
	// results for more than the configured number of empty polls.
	KindQueueDrainTimeout

	// KindFatal indicates an unrecoverable condition; the poller should stop
	// rather than continue to a further cycle.
	KindFatal
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindDuplicate:
		return "Duplicate"
	case KindAmbiguous:
		return "Ambiguous"
	case KindUploadFailed:
		return "UploadFailed"
	case KindStagingFailure:
		return "StagingFailure"
	case KindQueueDrainTimeout:
		return "QueueDrainTimeout"
	case KindFatal:
		return "Fatal"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Error wraps a failure encountered while packing, staging, or uploading a
// block with enough context to decide the next action without re-inspecting
// the original cause.
type Error struct {
	Kind      Kind
	Message   string
	BlockName string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.BlockName != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (block: %s): %v", e.Kind, e.Message, e.BlockName, e.Cause)
		}
		return fmt.Sprintf("%s: %s (block: %s)", e.Kind, e.Message, e.BlockName)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to reach the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewDuplicate creates a KindDuplicate error for a block the catalog already
// has a record of.
func NewDuplicate(blockName string, cause error) *Error {
	return &Error{
		Kind:      KindDuplicate,
		Message:   "block already exists in catalog",
		BlockName: blockName,
		Cause:     cause,
	}
}

// NewAmbiguous creates a KindAmbiguous error for a response that can't be
// classified as success or definite failure.
func NewAmbiguous(blockName string, cause error) *Error {
	return &Error{
		Kind:      KindAmbiguous,
		Message:   "ambiguous response from catalog, deferring to existence check",
		BlockName: blockName,
		Cause:     cause,
	}
}

// NewUploadFailed creates a KindUploadFailed error.
func NewUploadFailed(blockName string, cause error) *Error {
	return &Error{
		Kind:      KindUploadFailed,
		Message:   "block upload failed",
		BlockName: blockName,
		Cause:     cause,
	}
}

// NewStagingFailure creates a KindStagingFailure error.
func NewStagingFailure(operation string, cause error) *Error {
	return &Error{
		Kind:    KindStagingFailure,
		Message: fmt.Sprintf("staging store operation %q failed", operation),
		Cause:   cause,
	}
}

// NewQueueDrainTimeout creates a KindQueueDrainTimeout error.
func NewQueueDrainTimeout(emptyPolls, limit int) *Error {
	return &Error{
		Kind:    KindQueueDrainTimeout,
		Message: fmt.Sprintf("completion queue produced no results after %d/%d empty polls", emptyPolls, limit),
	}
}

// NewFatal creates a KindFatal error.
func NewFatal(message string, cause error) *Error {
	return &Error{
		Kind:    KindFatal,
		Message: message,
		Cause:   cause,
	}
}

// IsDuplicate returns true if err is a KindDuplicate uploader error.
func IsDuplicate(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindDuplicate
	}
	return false
}

// IsAmbiguous returns true if err is a KindAmbiguous uploader error.
func IsAmbiguous(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindAmbiguous
	}
	return false
}

// IsFatal returns true if err is a KindFatal uploader error.
func IsFatal(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindFatal
	}
	return false
}

// IsStagingFailure returns true if err is a KindStagingFailure uploader error.
func IsStagingFailure(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindStagingFailure
	}
	return false
}
