package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/stagingstore"
)

// CreateBlocks inserts new block rows for cache entries that have no row in
// the staging store yet.
func (t *tx) CreateBlocks(ctx context.Context, blocks []stagingstore.BlockRecord) error {
	for _, b := range blocks {
		_, err := t.pgTx.Exec(ctx, `
			INSERT INTO blocks (
				name, das_id, location, workflow, dataset_path, acquisition_era,
				processing_version, physics_group, dataset_type, primary_dataset_type,
				max_files, max_events, max_size, max_age_seconds,
				n_files, n_events, size_bytes, age_start, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`,
			b.Name, b.Das, b.Location, b.Workflow, b.DatasetPath, b.AcquisitionEra,
			b.ProcessingVersion, b.PhysicsGroup, b.DatasetType, b.PrimaryDatasetType,
			b.Limits.MaxFiles, b.Limits.MaxEvents, b.Limits.MaxSize, int64(b.Limits.MaxAge.Seconds()),
			b.NFiles, b.NEvents, b.Size, b.AgeStart, int16(b.Status),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateBlocks updates existing block rows in place. uploadOnlyMode does not
// change which columns are written; it is part of the interface contract for
// symmetry with FindOpenBlocks/LoadBlocks.
func (t *tx) UpdateBlocks(ctx context.Context, blocks []stagingstore.BlockRecord, uploadOnlyMode bool) error {
	for _, b := range blocks {
		_, err := t.pgTx.Exec(ctx, `
			UPDATE blocks SET
				n_files = $2, n_events = $3, size_bytes = $4, status = $5,
				dataset_type = $6, primary_dataset_type = $7, updated_at = now()
			WHERE name = $1
		`,
			b.Name, b.NFiles, b.NEvents, b.Size, int16(b.Status),
			b.DatasetType, b.PrimaryDatasetType,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SetBlockFiles applies a batch of {lfn, blockName} associations using
// pgx's batch API. Setting block_name is itself what excludes a file from
// FindUploadableFilesByDas (it filters on block_name IS NULL) — file-level
// status is untouched here and only advances to InDBS later, via
// UpdateFileStatus once the block is confirmed uploaded.
func (t *tx) SetBlockFiles(ctx context.Context, binds []block.Bind) error {
	if len(binds) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, bind := range binds {
		batch.Queue(`UPDATE files SET block_name = $2 WHERE lfn = $1`, bind.LFN, bind.BlockName)
	}

	br := t.pgTx.SendBatch(ctx, batch)
	defer br.Close()

	for range binds {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return br.Close()
}

// UpdateFileStatus flips the file-level status for all files belonging to
// the given blocks, e.g. marking them InDBS once their block has been
// confirmed uploaded.
func (t *tx) UpdateFileStatus(ctx context.Context, blockNames []string, newStatus block.Status) error {
	if len(blockNames) == 0 {
		return nil
	}
	_, err := t.pgTx.Exec(ctx, `
		UPDATE files SET status = $2 WHERE block_name = ANY($1)
	`, blockNames, int16(newStatus))
	return err
}
