package poller

import (
	"sync/atomic"
	"time"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/logger"
	"github.com/dmwm/dbs3-uploader/internal/metrics"
	"github.com/dmwm/dbs3-uploader/internal/uploaderr"
	"github.com/dmwm/dbs3-uploader/internal/workerpool"
)

// DrainResult is the outcome of one Drain call.
type DrainResult struct {
	// Terminal holds block names that reached InDBS this cycle and must be
	// committed to the staging store.
	Terminal []string

	// ToCheck holds block names deferred to the next cycle's straggler probe
	// because the remote's response was ambiguous.
	ToCheck []string

	// Waived is true when this call consumed the one-shot timeout waiver and
	// returned early, skipping the remainder of the cycle.
	Waived bool
}

// Drain polls pool's completion queue until every one of the pending
// submissions has produced exactly one result, or the timeout-waiver rule
// fires. waiverSpent is the process-lifetime, one-shot flag: the first
// exhaustion of nTries empty polls sets it and returns a waived result; any
// later exhaustion raises a fatal uploader error.
func Drain(pool *workerpool.Pool, cache *block.Cache, inFlight *block.InFlightSet, m *metrics.Collector, pending int, waitTime time.Duration, nTries int, waiverSpent *atomic.Bool) (DrainResult, error) {
	var result DrainResult
	emptyPolls := 0

	for pending > 0 {
		select {
		case res := <-pool.Completions():
			inFlight.Remove(res.Name)
			pending--
			emptyPolls = 0
			m.SetQueueDepth(inFlight.Len())
			m.RecordUploadOutcome(res.Outcome.String())

			b := cache.Get(res.Name)
			switch res.Outcome {
			case workerpool.Uploaded:
				if b != nil {
					b.MarkUploaded()
				}
				result.Terminal = append(result.Terminal, res.Name)
			case workerpool.Check:
				result.ToCheck = append(result.ToCheck, res.Name)
			case workerpool.Error:
				logger.Error("block upload reported error outcome, left Pending for retry", "block", res.Name, "error", res.Err)
			}

		case <-time.After(waitTime):
			emptyPolls++
			if emptyPolls <= nTries {
				continue
			}

			if waiverSpent.CompareAndSwap(false, true) {
				logger.Warn("completion queue drain exhausted nTries, applying one-shot timeout waiver")
				result.Waived = true
				return result, nil
			}
			return result, uploaderr.NewFatal("completion queue produced no results and the timeout waiver has already been spent", nil)
		}
	}

	return result, nil
}
