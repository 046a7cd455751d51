package poller

import (
	"context"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/stagingstore"
	"github.com/dmwm/dbs3-uploader/internal/uploaderr"
)

// CommitBlocks writes new and updated block rows inside one transaction —
// createBlocks for cache entries with InBuff == false, updateBlocks for
// entries that are both InBuff and Pending — then marks every newly created
// entry InBuff = true. A no-op if the cache holds nothing to write.
//
// A block that is already InBuff and still Open is stable: nothing about it
// has changed since the cycle that created it, so it is written by neither
// path. Rewriting it every cycle would make a no-op cycle produce a store
// write, which the steady state must not do.
func CommitBlocks(ctx context.Context, store stagingstore.Store, cache *block.Cache, uploadOnlyMode bool) error {
	var toCreate, toUpdate []*block.Block
	for _, b := range cache.All() {
		switch {
		case !b.InBuff:
			toCreate = append(toCreate, b)
		case b.Status == block.Pending:
			toUpdate = append(toUpdate, b)
		}
	}
	if len(toCreate) == 0 && len(toUpdate) == 0 {
		return nil
	}

	err := store.WithTransaction(ctx, func(ctx context.Context, tx stagingstore.Tx) error {
		if len(toCreate) > 0 {
			if err := tx.CreateBlocks(ctx, toBlockRecords(toCreate)); err != nil {
				return err
			}
		}
		if len(toUpdate) > 0 {
			if err := tx.UpdateBlocks(ctx, toBlockRecords(toUpdate), uploadOnlyMode); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uploaderr.NewStagingFailure("commitBlocks", err)
	}

	for _, b := range toCreate {
		b.InBuff = true
	}
	return nil
}

// CommitBinds drains the pending-binds buffer and writes the binds inside a
// second transaction, separate from CommitBlocks per the ordering guarantee
// that a file -> block bind never commits before the block row it
// references. On failure the drained binds are restored to the buffer so a
// later cycle retries them.
func CommitBinds(ctx context.Context, store stagingstore.Store, binds *block.PendingBinds) error {
	if binds.Len() == 0 {
		return nil
	}
	pending := binds.Drain()

	err := store.WithTransaction(ctx, func(ctx context.Context, tx stagingstore.Tx) error {
		return tx.SetBlockFiles(ctx, pending)
	})
	if err != nil {
		for _, bind := range pending {
			binds.Append(bind.LFN, bind.BlockName)
		}
		return uploaderr.NewStagingFailure("commitBinds", err)
	}
	return nil
}

func toBlockRecords(blocks []*block.Block) []stagingstore.BlockRecord {
	out := make([]stagingstore.BlockRecord, len(blocks))
	for i, b := range blocks {
		out[i] = stagingstore.BlockRecord{
			Name:               b.Name,
			Das:                b.Das,
			Location:           b.Location,
			Workflow:           b.Workflow,
			DatasetPath:        b.DatasetPath,
			AcquisitionEra:     b.AcquisitionEra,
			ProcessingVersion:  b.ProcessingVersion,
			PhysicsGroup:       b.PhysicsGroup,
			DatasetType:        b.DatasetType,
			PrimaryDatasetType: b.PrimaryDatasetType,
			Limits:             b.Limits,
			NFiles:             b.NFiles,
			NEvents:            b.NEvents,
			Size:               b.Size,
			AgeStart:           b.AgeStart,
			Status:             b.Status,
			InBuff:             b.InBuff,
		}
	}
	return out
}

func recordToBlock(r stagingstore.BlockRecord) *block.Block {
	return &block.Block{
		Name:               r.Name,
		Das:                r.Das,
		Location:           r.Location,
		Workflow:           r.Workflow,
		DatasetPath:        r.DatasetPath,
		AcquisitionEra:     r.AcquisitionEra,
		ProcessingVersion:  r.ProcessingVersion,
		PhysicsGroup:       r.PhysicsGroup,
		DatasetType:        r.DatasetType,
		PrimaryDatasetType: r.PrimaryDatasetType,
		Limits:             r.Limits,
		NFiles:             r.NFiles,
		NEvents:            r.NEvents,
		Size:               r.Size,
		AgeStart:           r.AgeStart,
		Status:             r.Status,
		InBuff:             r.InBuff,
	}
}
