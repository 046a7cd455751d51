// Package poller implements the uploader's single-threaded orchestrator: the
// cycle that hydrates the in-memory cache from the staging store, closes
// blocks that have aged out or whose workflow has completed, packs newly
// produced files into open blocks, commits block and bind changes, dispatches
// ready blocks to the worker pool, drains results, and reconciles stragglers
// left ambiguous by an earlier cycle.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/catalog"
	"github.com/dmwm/dbs3-uploader/internal/debugdump"
	"github.com/dmwm/dbs3-uploader/internal/logger"
	"github.com/dmwm/dbs3-uploader/internal/metrics"
	"github.com/dmwm/dbs3-uploader/internal/stagingstore"
	"github.com/dmwm/dbs3-uploader/internal/uploaderr"
	"github.com/dmwm/dbs3-uploader/internal/workerpool"
)

// Config carries the per-cycle tunables the orchestrator needs beyond what
// its collaborators (store, pool, catalog client) already encapsulate.
type Config struct {
	// CycleInterval is the sleep between successive cycles.
	CycleInterval time.Duration

	// DBSWaitTime is the completion-queue poll timeout used by Drain.
	DBSWaitTime time.Duration

	// DBSNTries is the empty-poll threshold before the timeout-waiver rule
	// fires in Drain.
	DBSNTries int

	// UploadOnlyMode skips packing and per-file status updates, assuming an
	// external producer already mapped files to blocks.
	UploadOnlyMode bool

	// Pack carries the stamps and capacity limits applied to freshly opened
	// blocks. Unused when UploadOnlyMode is true.
	Pack PackConfig
}

// Poller is the uploader's orchestrator. One Poller owns exactly one Cache,
// InFlightSet, and PendingBinds buffer for the lifetime of the process; none
// of its state is safe for concurrent access from outside its own run loop.
type Poller struct {
	store         stagingstore.Store
	pool          *workerpool.Pool
	catalogClient *catalog.Client
	dumper        *debugdump.Dumper
	metrics       *metrics.Collector
	cfg           Config

	cache        *block.Cache
	inFlight     *block.InFlightSet
	pendingBinds *block.PendingBinds
	toCheck      []string

	waiverSpent      atomic.Bool
	stopAfterCurrent atomic.Bool
	cycleID          atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Poller. m may be nil, in which case every metric call is a
// no-op.
func New(store stagingstore.Store, pool *workerpool.Pool, catalogClient *catalog.Client, dumper *debugdump.Dumper, m *metrics.Collector, cfg Config) *Poller {
	return &Poller{
		store:         store,
		pool:          pool,
		catalogClient: catalogClient,
		dumper:        dumper,
		metrics:       m,
		cfg:           cfg,
		cache:         block.NewCache(),
		inFlight:      block.NewInFlightSet(),
		pendingBinds:  block.NewPendingBinds(),
	}
}

// Start launches the worker pool and the polling loop in a background
// goroutine. The poller runs until Stop is called or ctx is canceled.
func (p *Poller) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.pool.Start(runCtx)

	p.wg.Add(1)
	go p.run(runCtx)
}

// Stop requests the poller finish its current cycle and then stop, waiting
// up to timeout for the run loop and worker pool to exit. This is the "one
// more pass and stop" shutdown: a cycle already in progress is allowed to
// reach a consistent commit point rather than being interrupted mid-cycle.
func (p *Poller) Stop(timeout time.Duration) {
	p.stopAfterCurrent.Store(true)

	deadline := time.Now().Add(timeout)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("poller run loop stop timed out, canceling in place", "timeout", timeout.String())
		if p.cancel != nil {
			p.cancel()
		}
		<-done
	}

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	p.pool.Stop(remaining)
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		if err := p.RunCycle(ctx); err != nil {
			if uploaderr.IsFatal(err) {
				logger.Error("fatal error in polling cycle, poller stopping", "error", err)
				return
			}
			logger.Error("polling cycle failed, will retry next cycle", "error", err)
		}

		if p.stopAfterCurrent.Load() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunCycle executes exactly one polling cycle: reconcile stragglers from the
// prior cycle, hydrate the cache, sweep timed-out and completed-workflow
// blocks, pack new files, commit, dispatch, and drain.
func (p *Poller) RunCycle(ctx context.Context) error {
	start := time.Now()
	cycleID := p.cycleID.Add(1)
	ctx = logger.WithContext(ctx, &logger.LogContext{CycleID: cycleID})

	if err := p.reconcileStragglers(ctx); err != nil {
		return err
	}

	if err := p.hydrate(ctx); err != nil {
		return err
	}

	now := time.Now()
	before := countClosed(p.cache)

	AgeSweep(p.cache, now)

	completed, err := p.store.GetCompletedWorkflows(ctx)
	if err != nil {
		return uploaderr.NewStagingFailure("getCompletedWorkflows", err)
	}
	CompletionSweep(p.cache, completed)

	if !p.cfg.UploadOnlyMode {
		if err := p.pack(ctx, now); err != nil {
			return err
		}
	}

	p.metrics.AddBlocksPacked(countClosed(p.cache) - before)

	if err := CommitBlocks(ctx, p.store, p.cache, p.cfg.UploadOnlyMode); err != nil {
		return err
	}
	if err := CommitBinds(ctx, p.store, p.pendingBinds); err != nil {
		return err
	}

	submitted := Dispatch(p.cache, p.inFlight, p.pool, p.dumper, p.metrics)

	drainResult, err := Drain(p.pool, p.cache, p.inFlight, p.metrics, submitted, p.cfg.DBSWaitTime, p.cfg.DBSNTries, &p.waiverSpent)
	if err != nil {
		return err
	}
	if drainResult.Waived {
		logger.WarnCtx(ctx, "cycle ending early, completion queue timeout waiver applied")
	}

	p.toCheck = append(p.toCheck, drainResult.ToCheck...)

	if err := p.commitTerminal(ctx, drainResult.Terminal); err != nil {
		return err
	}

	p.metrics.ObserveCycleDuration(time.Since(start).Seconds())
	return nil
}

// reconcileStragglers probes the remote catalog for every block left
// "check" by an earlier cycle's ambiguous upload outcome.
func (p *Poller) reconcileStragglers(ctx context.Context) error {
	if len(p.toCheck) == 0 {
		return nil
	}

	confirmed, stillChecking := Reconcile(ctx, p.catalogClient, p.cache, p.toCheck)
	p.toCheck = stillChecking

	if len(confirmed) == 0 {
		return nil
	}
	return p.commitTerminal(ctx, confirmed)
}

// hydrate loads every Open block not already cached, along with its files,
// from the staging store, then reloads any Pending block still on the
// straggler list whose in-memory cache entry is missing — the case where
// this process never packed or dispatched that block itself (e.g. a
// restart between the cycle that dispatched it and the cycle that would
// have confirmed it) and so has no cached Block to mark uploaded once
// Reconcile confirms it.
func (p *Poller) hydrate(ctx context.Context) error {
	records, err := p.store.FindOpenBlocks(ctx, p.cfg.UploadOnlyMode)
	if err != nil {
		return uploaderr.NewStagingFailure("findOpenBlocks", err)
	}

	for _, r := range records {
		if err := p.hydrateRecord(ctx, r); err != nil {
			return err
		}
	}

	return p.hydrateMissingStragglers(ctx)
}

// hydrateMissingStragglers reloads, from the staging store, any block named
// in p.toCheck that hydrate's Open-block pass didn't already cache — it is
// Pending, not Open, so FindOpenBlocks never returns it.
func (p *Poller) hydrateMissingStragglers(ctx context.Context) error {
	var missing []string
	for _, name := range p.toCheck {
		if p.cache.Get(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	records, err := p.store.LoadBlocks(ctx, missing, p.cfg.UploadOnlyMode)
	if err != nil {
		return uploaderr.NewStagingFailure("loadBlocks", err)
	}

	for _, r := range records {
		if err := p.hydrateRecord(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// hydrateRecord inserts r into the cache, with its files, unless it is
// already cached.
func (p *Poller) hydrateRecord(ctx context.Context, r stagingstore.BlockRecord) error {
	if p.cache.Get(r.Name) != nil {
		return nil
	}

	b := recordToBlock(r)
	files, err := p.store.LoadFilesOfBlock(ctx, r.Name)
	if err != nil {
		return uploaderr.NewStagingFailure("loadFilesOfBlock", err)
	}
	b.Files = files

	p.cache.Insert(b)
	return nil
}

// pack loads uploadable DAS groups and their unassigned files and packs them
// into the cache via Pack.
func (p *Poller) pack(ctx context.Context, now time.Time) error {
	groups, err := p.store.FindUploadableDasGroups(ctx)
	if err != nil {
		return uploaderr.NewStagingFailure("findUploadableDasGroups", err)
	}
	if len(groups) == 0 {
		return nil
	}

	filesByDas := func(dasID string) ([]block.File, error) {
		files, err := p.store.FindUploadableFilesByDas(ctx, dasID)
		if err != nil {
			return nil, uploaderr.NewStagingFailure("findUploadableFilesByDas", err)
		}
		return files, nil
	}

	return Pack(p.cache, groups, filesByDas, p.pendingBinds, now, p.cfg.Pack)
}

// commitTerminal writes the InDBS status of every named block and its files
// to the staging store, then evicts the block from the cache — it has no
// further use once the remote catalog has confirmed it.
func (p *Poller) commitTerminal(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	blocks := make([]*block.Block, 0, len(names))
	for _, name := range names {
		if b := p.cache.Get(name); b != nil {
			blocks = append(blocks, b)
		}
	}
	if len(blocks) == 0 {
		return nil
	}

	err := p.store.WithTransaction(ctx, func(ctx context.Context, tx stagingstore.Tx) error {
		if err := tx.UpdateBlocks(ctx, toBlockRecords(blocks), p.cfg.UploadOnlyMode); err != nil {
			return err
		}
		if !p.cfg.UploadOnlyMode {
			if err := tx.UpdateFileStatus(ctx, names, block.InDBS); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uploaderr.NewStagingFailure("commitTerminal", err)
	}

	for _, name := range names {
		p.cache.Remove(name)
	}
	return nil
}

// countClosed counts blocks in cache whose status is not Open, used to
// derive how many blocks a sweep or pack pass closed this cycle.
func countClosed(cache *block.Cache) int {
	n := 0
	for _, b := range cache.All() {
		if b.Status != block.Open {
			n++
		}
	}
	return n
}
