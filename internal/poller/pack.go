package poller

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/stagingstore"
)

// PackConfig carries the stamps and capacity limits applied to every freshly
// opened block.
type PackConfig struct {
	PhysicsGroup       string
	DatasetType        string
	PrimaryDatasetType string
	Limits             block.Limits
}

// FilesByDas loads the uploadable (unassigned) files for one dataset-
// algorithm group.
type FilesByDas func(dasID string) ([]block.File, error)

// Pack partitions each DAS group's uploadable files by location (the first
// entry of File.Locations, a tie-break that is arbitrary but stable within
// this call) and packs them into the current open block for that
// (das, location) pair, closing and replacing it whenever CanAccept fails.
// Every file admitted is appended to binds as {lfn, blockName}. Files that
// already carry a block reference are skipped — they were loaded via
// loadFilesOfBlock elsewhere, not here.
func Pack(cache *block.Cache, groups []stagingstore.DasGroup, filesByDas FilesByDas, binds *block.PendingBinds, now time.Time, cfg PackConfig) error {
	for _, g := range groups {
		files, err := filesByDas(g.DasID)
		if err != nil {
			return err
		}

		byLocation, order := partitionByLocation(files)

		for _, loc := range order {
			current := cache.FindOpenFor(g.DasID, loc)

			for _, f := range byLocation[loc] {
				if current == nil || !current.CanAccept(f) {
					if current != nil {
						current.CloseForUpload()
					}
					current = openBlock(g, loc, f.Workflow, now, cfg)
					cache.Insert(current)
				}
				current.AddFile(f, cfg.DatasetType, cfg.PrimaryDatasetType)
				binds.Append(f.LFN, current.Name)
			}
		}
	}
	return nil
}

// partitionByLocation groups files by their canonical location, preserving
// the first-seen order of locations and the original order of files within
// each location.
func partitionByLocation(files []block.File) (map[string][]block.File, []string) {
	byLocation := make(map[string][]block.File)
	var order []string

	for _, f := range files {
		if f.Block != "" {
			continue
		}
		loc := f.Location()
		if _, seen := byLocation[loc]; !seen {
			order = append(order, loc)
		}
		byLocation[loc] = append(byLocation[loc], f)
	}

	return byLocation, order
}

func openBlock(g stagingstore.DasGroup, location, workflow string, now time.Time, cfg PackConfig) *block.Block {
	name := fmt.Sprintf("%s#%s", g.DatasetPath, uuid.New().String())
	b := block.New(name, g.DasID, location, workflow, g.DatasetPath, g.AcquisitionEra, g.ProcessingVersion, cfg.Limits, now)
	b.PhysicsGroup = cfg.PhysicsGroup
	return b
}
