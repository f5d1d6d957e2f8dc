// Package dispatch executes batching jobs asynchronously on a fixed worker
// pool. Jobs are partitioned to workers by a hash of their insurer/provider
// key, so two jobs for the same pair always land on the same worker and run
// strictly one after the other.
package dispatch

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/service"
)

// Dispatcher errors.
var (
	ErrQueueFull = errors.New("job queue is full")
	ErrStopped   = errors.New("dispatcher is stopped")
)

// Runner executes one batching job. The engine satisfies this.
type Runner interface {
	Run(ctx context.Context, job service.BatchJob) error
}

// Dispatcher implements service.Dispatcher over an in-process worker pool.
type Dispatcher struct {
	runner  Runner
	queues  []chan service.BatchJob
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a dispatcher with the given worker count and per-worker queue
// depth. Zero or negative arguments fall back to sane defaults.
func New(runner Runner, workers, queueDepth int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 256
	}

	queues := make([]chan service.BatchJob, workers)
	for i := range queues {
		queues[i] = make(chan service.BatchJob, queueDepth)
	}

	return &Dispatcher{
		runner: runner,
		queues: queues,
	}
}

// Start launches the workers. They drain their queues until Stop is called;
// ctx cancels the job in flight.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	for i, queue := range d.queues {
		d.wg.Add(1)
		go d.work(ctx, i, queue)
	}
}

// Enqueue implements service.Dispatcher. It never blocks: a full queue is
// reported to the caller, whose claim stays pending for a rebatch pass.
func (d *Dispatcher) Enqueue(job service.BatchJob) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	queue := d.queues[d.partition(job.Group)]
	d.mu.Unlock()

	select {
	case queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queues and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, queue := range d.queues {
		close(queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int, queue <-chan service.BatchJob) {
	defer d.wg.Done()

	for job := range queue {
		if ctx.Err() != nil {
			continue
		}
		if err := d.runner.Run(ctx, job); err != nil {
			common.LogError(err, "Batching job failed", common.Fields{
				"worker":       id,
				"insurer_code": job.Group.InsurerCode,
				"provider":     job.Group.ProviderName,
			})
			continue
		}
		slog.Debug("Batching job finished",
			"worker", id,
			"insurer_code", job.Group.InsurerCode,
			"provider", job.Group.ProviderName)
	}
}

// partition maps a claim group to a worker index.
func (d *Dispatcher) partition(group service.ClaimGroup) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(group.InsurerCode))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(group.ProviderName))
	return int(h.Sum32() % uint32(len(d.queues)))
}
