package postgres

import (
	"context"
	"time"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/stagingstore"
)

// FindOpenBlocks returns blocks whose status is Open. uploadOnlyMode does
// not change the query itself — both packing and upload-only deployments
// still need to apply timeout/workflow-completion closure to Open blocks —
// it is threaded through for parity with the staging-store contract and
// future query specialization.
func (s *Store) FindOpenBlocks(ctx context.Context, uploadOnlyMode bool) ([]stagingstore.BlockRecord, error) {
	rows, err := s.pool.Query(ctx, blockSelectColumns+` FROM blocks WHERE status = $1`, int16(block.Open))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlocks(rows)
}

// LoadBlocks returns full metadata for the named blocks.
func (s *Store) LoadBlocks(ctx context.Context, names []string, uploadOnlyMode bool) ([]stagingstore.BlockRecord, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, blockSelectColumns+` FROM blocks WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlocks(rows)
}

const blockSelectColumns = `
	SELECT name, das_id, location, workflow, dataset_path, acquisition_era,
	       processing_version, physics_group, dataset_type, primary_dataset_type,
	       max_files, max_events, max_size, max_age_seconds,
	       n_files, n_events, size_bytes, age_start, status
`

func scanBlocks(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]stagingstore.BlockRecord, error) {
	var out []stagingstore.BlockRecord
	for rows.Next() {
		var r stagingstore.BlockRecord
		var maxAgeSeconds int64
		var status int16
		if err := rows.Scan(
			&r.Name, &r.Das, &r.Location, &r.Workflow, &r.DatasetPath, &r.AcquisitionEra,
			&r.ProcessingVersion, &r.PhysicsGroup, &r.DatasetType, &r.PrimaryDatasetType,
			&r.Limits.MaxFiles, &r.Limits.MaxEvents, &r.Limits.MaxSize, &maxAgeSeconds,
			&r.NFiles, &r.NEvents, &r.Size, &r.AgeStart, &status,
		); err != nil {
			return nil, err
		}
		r.Limits.MaxAge = time.Duration(maxAgeSeconds) * time.Second
		r.Status = block.Status(status)
		r.InBuff = true
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadFilesOfBlock returns files already assigned to a block.
func (s *Store) LoadFilesOfBlock(ctx context.Context, name string) ([]block.File, error) {
	rows, err := s.pool.Query(ctx, fileSelectColumns+` FROM files WHERE block_name = $1`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

// FindUploadableDasGroups returns dataset-algorithm groups with at least
// one unassigned file.
func (s *Store) FindUploadableDasGroups(ctx context.Context) ([]stagingstore.DasGroup, error) {
	query := `
		SELECT DISTINCT g.das_id, g.dataset_path, g.acquisition_era, g.processing_version
		FROM das_groups g
		JOIN files f ON f.das_id = g.das_id
		WHERE f.block_name IS NULL
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stagingstore.DasGroup
	for rows.Next() {
		var g stagingstore.DasGroup
		if err := rows.Scan(&g.DasID, &g.DatasetPath, &g.AcquisitionEra, &g.ProcessingVersion); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

const fileSelectColumns = `
	SELECT lfn, size_bytes, events, locations, dataset_path, workflow,
	       physics_group, prep_id, COALESCE(block_name, '')
`

func scanFiles(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]block.File, error) {
	var out []block.File
	for rows.Next() {
		var f block.File
		if err := rows.Scan(
			&f.LFN, &f.Size, &f.Events, &f.Locations, &f.DatasetPath, &f.Workflow,
			&f.PhysicsGroup, &f.PrepID, &f.Block,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FindUploadableFilesByDas returns files in the given group not yet
// assigned to a block.
func (s *Store) FindUploadableFilesByDas(ctx context.Context, dasID string) ([]block.File, error) {
	rows, err := s.pool.Query(ctx, fileSelectColumns+` FROM files WHERE das_id = $1 AND block_name IS NULL`, dasID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

// GetCompletedWorkflows returns the set of workflows whose upstream has
// signaled completion.
func (s *Store) GetCompletedWorkflows(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT workflow FROM workflow_completion`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var wf string
		if err := rows.Scan(&wf); err != nil {
			return nil, err
		}
		out[wf] = struct{}{}
	}
	return out, rows.Err()
}
