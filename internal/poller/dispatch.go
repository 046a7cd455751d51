package poller

import (
	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/debugdump"
	"github.com/dmwm/dbs3-uploader/internal/logger"
	"github.com/dmwm/dbs3-uploader/internal/metrics"
	"github.com/dmwm/dbs3-uploader/internal/workerpool"
)

// Dispatch submits every block whose status is Pending, that is not already
// in-flight, and that is not empty, to pool — serializing it, marking it
// in-flight, and optionally writing it to the debug dump path. Returns the
// number of blocks submitted.
func Dispatch(cache *block.Cache, inFlight *block.InFlightSet, pool *workerpool.Pool, dumper *debugdump.Dumper, m *metrics.Collector) int {
	submitted := 0

	for _, b := range cache.All() {
		if b.Status != block.Pending {
			continue
		}
		if inFlight.Contains(b.Name) {
			continue
		}
		if b.IsEmpty() {
			continue
		}

		payload := b.Serialize()
		if err := dumper.Write(payload); err != nil {
			logger.Warn("debug block dump failed", "block", b.Name, "error", err)
		}

		pool.Submit(workerpool.Submission{Name: b.Name, Payload: payload})
		inFlight.Add(b.Name)
		submitted++
	}

	m.SetQueueDepth(inFlight.Len())
	return submitted
}
