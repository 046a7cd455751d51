// Package stagingstore defines the uploader's contract with the local
// staging store: the persistent record of produced files and their block
// assignments that the poller reads from and writes to every cycle.
package stagingstore

import (
	"context"
	"time"

	"github.com/dmwm/dbs3-uploader/internal/block"
)

// DasGroup is a dataset-algorithm group descriptor produced by the staging
// store. It supplies the acquisition-era and processing-version stamps
// onto every block opened for that group.
type DasGroup struct {
	DasID             string
	AcquisitionEra    string
	ProcessingVersion string
	DatasetPath       string
}

// BlockRecord is the staging store's on-disk view of a Block, as loaded by
// FindOpenBlocks/LoadBlocks and written by CreateBlocks/UpdateBlocks.
type BlockRecord struct {
	Name               string
	Das                string
	Location           string
	Workflow           string
	DatasetPath        string
	AcquisitionEra     string
	ProcessingVersion  string
	PhysicsGroup       string
	DatasetType        string
	PrimaryDatasetType string
	Limits             block.Limits
	NFiles             int64
	NEvents            int64
	Size               int64
	AgeStart           time.Time
	Status             block.Status
	InBuff             bool
}

// Store is the uploader's read/write contract with the local staging store.
// All write operations must be issued through a session created by
// WithTransaction; reads may be issued outside a transaction and observe
// the last committed state.
type Store interface {
	// FindOpenBlocks returns blocks whose status is Open in the staging
	// store. When uploadOnlyMode is true, callers are expected to have
	// skipped file-packing entirely; FindOpenBlocks still reports whatever
	// Open blocks exist so timeout/workflow-completion sweeps still apply.
	FindOpenBlocks(ctx context.Context, uploadOnlyMode bool) ([]BlockRecord, error)

	// LoadBlocks returns full metadata for the named blocks.
	LoadBlocks(ctx context.Context, names []string, uploadOnlyMode bool) ([]BlockRecord, error)

	// LoadFilesOfBlock returns files already assigned to a block.
	LoadFilesOfBlock(ctx context.Context, name string) ([]block.File, error)

	// FindUploadableDasGroups returns dataset-algorithm groups that have at
	// least one uploadable (unassigned) file.
	FindUploadableDasGroups(ctx context.Context) ([]DasGroup, error)

	// FindUploadableFilesByDas returns files in the given group not yet
	// assigned to a block.
	FindUploadableFilesByDas(ctx context.Context, dasID string) ([]block.File, error)

	// GetCompletedWorkflows returns workflows whose upstream has signaled
	// completion.
	GetCompletedWorkflows(ctx context.Context) (map[string]struct{}, error)

	// WithTransaction executes fn inside a single transactional session.
	// If fn returns an error the transaction is rolled back; otherwise it
	// is committed. Implementations should retry internally on a retryable
	// database error (e.g. serialization failure, deadlock).
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of write operations available inside one transactional
// session opened by Store.WithTransaction.
type Tx interface {
	// CreateBlocks inserts new block rows for cache entries that have no
	// row in the staging store yet (InBuff == false).
	CreateBlocks(ctx context.Context, blocks []BlockRecord) error

	// UpdateBlocks updates existing block rows (InBuff == true).
	UpdateBlocks(ctx context.Context, blocks []BlockRecord, uploadOnlyMode bool) error

	// SetBlockFiles applies a batch of {lfn, blockName} associations.
	SetBlockFiles(ctx context.Context, binds []block.Bind) error

	// UpdateFileStatus flips the file-level status for all files belonging
	// to the given blocks.
	UpdateFileStatus(ctx context.Context, blockNames []string, newStatus block.Status) error
}
