package poller

import (
	"time"

	"github.com/dmwm/dbs3-uploader/internal/block"
)

// AgeSweep closes every Open block in cache whose open duration exceeds its
// MaxAge limit as of now. Pure state transition: no I/O, no reconciliation.
func AgeSweep(cache *block.Cache, now time.Time) {
	for _, b := range cache.All() {
		if b.Status == block.Open && b.IsTimedOut(now) {
			b.CloseForUpload()
		}
	}
}

// CompletionSweep closes every Open block in cache whose workflow is in
// completedWorkflows. Once upstream has produced everything it will
// produce, no further file will ever join the block, so holding it Open
// yields no benefit. Pure state transition: no I/O, no reconciliation.
func CompletionSweep(cache *block.Cache, completedWorkflows map[string]struct{}) {
	for _, b := range cache.All() {
		if b.Status != block.Open {
			continue
		}
		if _, done := completedWorkflows[b.Workflow]; done {
			b.CloseForUpload()
		}
	}
}
