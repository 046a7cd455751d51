package poller

import (
	"context"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/catalog"
	"github.com/dmwm/dbs3-uploader/internal/logger"
)

// Reconcile probes the remote catalog for every block name left over from an
// earlier cycle's ambiguous ("check") upload outcome. A name the remote
// confirms exists is promoted to InDBS and returned in confirmed; a probe
// error or a not-yet-visible block is retained in stillChecking for the next
// cycle.
func Reconcile(ctx context.Context, client *catalog.Client, cache *block.Cache, toCheck []string) (confirmed, stillChecking []string) {
	for _, name := range toCheck {
		exists, err := client.ListBlocks(ctx, name)
		if err != nil {
			logger.Warn("straggler existence probe failed, retrying next cycle", "block", name, "error", err)
			stillChecking = append(stillChecking, name)
			continue
		}

		if !exists {
			stillChecking = append(stillChecking, name)
			continue
		}

		if b := cache.Get(name); b != nil {
			b.MarkUploaded()
		}
		confirmed = append(confirmed, name)
	}
	return confirmed, stillChecking
}
