package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmwm/dbs3-uploader/internal/block"
)

func openBlockAt(name string, age time.Duration, now time.Time) *block.Block {
	b := block.New(name, "das1", "siteA", "wf1", "/a/b/c", "era1", "v1", block.Limits{MaxAge: 24 * time.Hour}, now.Add(-age))
	return b
}

func TestAgeSweepClosesOnlyTimedOutOpenBlocks(t *testing.T) {
	now := time.Now()
	cache := block.NewCache()

	stale := openBlockAt("stale", 25*time.Hour, now)
	fresh := openBlockAt("fresh", 1*time.Hour, now)
	cache.Insert(stale)
	cache.Insert(fresh)

	AgeSweep(cache, now)

	assert.Equal(t, block.Pending, stale.Status)
	assert.Equal(t, block.Open, fresh.Status)
}

func TestAgeSweepIgnoresNonOpenBlocks(t *testing.T) {
	now := time.Now()
	cache := block.NewCache()

	b := openBlockAt("already-pending", 48*time.Hour, now)
	b.Status = block.InDBS
	cache.Insert(b)

	AgeSweep(cache, now)

	assert.Equal(t, block.InDBS, b.Status, "AgeSweep must never move a block backwards or touch a non-Open block")
}

func TestCompletionSweepClosesBlocksOfCompletedWorkflows(t *testing.T) {
	now := time.Now()
	cache := block.NewCache()

	done := openBlockAt("done-workflow", time.Minute, now)
	done.Workflow = "wf-done"
	stillRunning := openBlockAt("running-workflow", time.Minute, now)
	stillRunning.Workflow = "wf-running"
	cache.Insert(done)
	cache.Insert(stillRunning)

	CompletionSweep(cache, map[string]struct{}{"wf-done": {}})

	assert.Equal(t, block.Pending, done.Status)
	assert.Equal(t, block.Open, stillRunning.Status)
}
