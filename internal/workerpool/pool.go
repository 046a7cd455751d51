// Package workerpool implements the bounded pool of upload workers that
// consume serialized block payloads from a submission queue and post a
// classified result onto a completion queue.
package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/catalog"
	"github.com/dmwm/dbs3-uploader/internal/logger"
)

// Outcome classifies the result of one submission — exactly one of
// Uploaded, Check, or Error.
type Outcome int

const (
	// Uploaded means the remote service accepted the block, or replied with
	// a "block already exists" error naming the same block. Duplicate
	// upload is treated as success — the at-least-once reconciliation hook.
	Uploaded Outcome = iota

	// Check means the remote service responded with a proxy-level error
	// whose success or failure is ambiguous. The block's name is recorded
	// so a later cycle can query the remote catalog to determine whether
	// the insert actually landed.
	Check

	// Error means any other failure; the block is left Pending so a later
	// cycle retries it.
	Error
)

func (o Outcome) String() string {
	switch o {
	case Uploaded:
		return "uploaded"
	case Check:
		return "check"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Submission is a serialized block payload submitted to the pool.
type Submission struct {
	Name    string
	Payload block.Payload
}

// Result is the classified outcome of one Submission.
type Result struct {
	Name    string
	Outcome Outcome
	Err     error
}

// ClientFactory builds the long-lived remote-catalog connection owned by a
// single worker. Each worker calls this exactly once at startup.
type ClientFactory func() *catalog.Client

// item is the internal message carried on the submission channel: either a
// real Submission, or the stop sentinel. This is the typed equivalent of
// the spec's "STOP" sentinel value on the submission queue.
type item struct {
	stop bool
	sub  Submission
}

// Pool is a bounded set of N long-lived upload workers, each with its own
// remote-catalog connection. A single submission channel feeds all
// workers; a single completion channel gathers their results.
type Pool struct {
	n             int
	newClient     ClientFactory
	submissions   chan item
	completions   chan Result
	wg            sync.WaitGroup
	startOnce     sync.Once
	started       bool
	mu            sync.Mutex
}

// New creates a Pool with n workers. The submission and completion channels
// are both buffered to 4*n to absorb one cycle's worth of dispatch without
// the orchestrator blocking on a slow worker.
func New(n int, newClient ClientFactory) *Pool {
	if n <= 0 {
		n = 1
	}
	capacity := n * 4
	return &Pool{
		n:           n,
		newClient:   newClient,
		submissions: make(chan item, capacity),
		completions: make(chan Result, capacity),
	}
}

// Start launches the worker goroutines. Calling Start more than once is a
// no-op — the pool may be rebuilt between cycles that had no work, but a
// single live Pool is only ever started once.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.mu.Lock()
		p.started = true
		p.mu.Unlock()

		for i := 0; i < p.n; i++ {
			p.wg.Add(1)
			go p.runWorker(ctx, i)
		}
		logger.Info("worker pool started", "workers", p.n)
	})
}

// Submit enqueues a submission for upload. The caller (the orchestrator)
// must guarantee the name is not already in-flight; Pool does not itself
// deduplicate.
func (p *Pool) Submit(sub Submission) {
	p.submissions <- item{sub: sub}
}

// Completions returns the channel workers post classified Results onto.
func (p *Pool) Completions() <-chan Result {
	return p.completions
}

// Stop submits one stop sentinel per worker and waits for every worker to
// exit, up to timeout. Tear-down is best-effort: if the pool does not drain
// within timeout, Stop returns anyway and leaves any still-running workers
// to finish on their own. The poller must never submit to a Pool after
// calling Stop.
func (p *Pool) Stop(timeout time.Duration) {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}

	for i := 0; i < p.n; i++ {
		p.submissions <- item{stop: true}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("worker pool stopped gracefully")
	case <-time.After(timeout):
		logger.Warn("worker pool stop timed out", "timeout", timeout.String())
	}
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()

	client := p.newClient()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.submissions:
			if msg.stop {
				return
			}
			p.completions <- p.upload(ctx, client, msg.sub, id)
		}
	}
}

func (p *Pool) upload(ctx context.Context, client *catalog.Client, sub Submission, workerID int) Result {
	err := client.InsertBulkBlock(ctx, sub.Payload)
	if err == nil {
		logger.Debug("block uploaded", "block", sub.Name, "worker_id", workerID)
		return Result{Name: sub.Name, Outcome: Uploaded}
	}

	if catalog.IsAlreadyExists(err, sub.Name) {
		logger.InfoCtx(ctx, "block already exists in catalog, treating as uploaded", "block", sub.Name, "worker_id", workerID)
		return Result{Name: sub.Name, Outcome: Uploaded, Err: err}
	}

	if catalog.IsAmbiguous(err) {
		logger.Warn("ambiguous response uploading block, deferring to existence check", "block", sub.Name, "worker_id", workerID, "error", err)
		return Result{Name: sub.Name, Outcome: Check, Err: err}
	}

	logger.Error("block upload failed", "block", sub.Name, "worker_id", workerID, "error", err)
	return Result{Name: sub.Name, Outcome: Error, Err: err}
}
