package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/stagingstore"
)

func testPackConfig(limits block.Limits) PackConfig {
	return PackConfig{
		PhysicsGroup:       "Tracker",
		DatasetType:        "PRODUCTION",
		PrimaryDatasetType: "mc",
		Limits:             limits,
	}
}

func TestPackFillsSingleOpenBlockUnderCapacity(t *testing.T) {
	cache := block.NewCache()
	binds := block.NewPendingBinds()
	now := time.Now()

	groups := []stagingstore.DasGroup{
		{DasID: "das1", AcquisitionEra: "Run2026A", ProcessingVersion: "v1", DatasetPath: "/Primary/Run2026A/RECO"},
	}
	files := []block.File{
		{LFN: "/store/f1", Size: 100, Events: 10, Locations: []string{"T1_SITE"}, Workflow: "wf1"},
		{LFN: "/store/f2", Size: 100, Events: 10, Locations: []string{"T1_SITE"}, Workflow: "wf1"},
		{LFN: "/store/f3", Size: 100, Events: 10, Locations: []string{"T1_SITE"}, Workflow: "wf1"},
	}
	filesByDas := func(dasID string) ([]block.File, error) { return files, nil }

	err := Pack(cache, groups, filesByDas, binds, now, testPackConfig(block.Limits{MaxFiles: 500}))
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Len())
	all := cache.All()
	require.Len(t, all, 1)
	assert.Equal(t, int64(3), all[0].NFiles)
	assert.Equal(t, block.Open, all[0].Status)
	assert.Equal(t, 3, binds.Len())
}

func TestPackClosesAndOpensNewBlockOnCapacityExhaustion(t *testing.T) {
	cache := block.NewCache()
	binds := block.NewPendingBinds()
	now := time.Now()

	groups := []stagingstore.DasGroup{
		{DasID: "das1", AcquisitionEra: "Run2026A", ProcessingVersion: "v1", DatasetPath: "/Primary/Run2026A/RECO"},
	}
	files := []block.File{
		{LFN: "/store/f1", Size: 10, Events: 1, Locations: []string{"T1_SITE"}, Workflow: "wf1"},
		{LFN: "/store/f2", Size: 10, Events: 1, Locations: []string{"T1_SITE"}, Workflow: "wf1"},
		{LFN: "/store/f3", Size: 10, Events: 1, Locations: []string{"T1_SITE"}, Workflow: "wf1"},
	}
	filesByDas := func(dasID string) ([]block.File, error) { return files, nil }

	err := Pack(cache, groups, filesByDas, binds, now, testPackConfig(block.Limits{MaxFiles: 2}))
	require.NoError(t, err)

	require.Equal(t, 2, cache.Len())

	var openCount, pendingCount int
	for _, b := range cache.All() {
		switch b.Status {
		case block.Open:
			openCount++
			assert.Equal(t, int64(1), b.NFiles)
		case block.Pending:
			pendingCount++
			assert.Equal(t, int64(2), b.NFiles)
		}
	}
	assert.Equal(t, 1, openCount)
	assert.Equal(t, 1, pendingCount)
	assert.Equal(t, 3, binds.Len())
}

func TestPackPartitionsByLocationIndependently(t *testing.T) {
	cache := block.NewCache()
	binds := block.NewPendingBinds()
	now := time.Now()

	groups := []stagingstore.DasGroup{
		{DasID: "das1", DatasetPath: "/Primary/Run2026A/RECO"},
	}
	files := []block.File{
		{LFN: "/store/a1", Size: 1, Events: 1, Locations: []string{"SITE_A"}},
		{LFN: "/store/b1", Size: 1, Events: 1, Locations: []string{"SITE_B"}},
	}
	filesByDas := func(dasID string) ([]block.File, error) { return files, nil }

	err := Pack(cache, groups, filesByDas, binds, now, testPackConfig(block.Limits{}))
	require.NoError(t, err)

	require.Equal(t, 2, cache.Len())
	locations := map[string]bool{}
	for _, b := range cache.All() {
		locations[b.Location] = true
	}
	assert.True(t, locations["SITE_A"])
	assert.True(t, locations["SITE_B"])
}

func TestPackSkipsFilesAlreadyAssignedToABlock(t *testing.T) {
	cache := block.NewCache()
	binds := block.NewPendingBinds()
	now := time.Now()

	groups := []stagingstore.DasGroup{{DasID: "das1", DatasetPath: "/Primary/Run2026A/RECO"}}
	files := []block.File{
		{LFN: "/store/assigned", Size: 1, Events: 1, Locations: []string{"SITE_A"}, Block: "already#there"},
	}
	filesByDas := func(dasID string) ([]block.File, error) { return files, nil }

	err := Pack(cache, groups, filesByDas, binds, now, testPackConfig(block.Limits{}))
	require.NoError(t, err)

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, binds.Len())
}
