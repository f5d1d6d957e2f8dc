package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearhealth/claimflow/internal/service"
)

// recordingRunner tracks concurrent executions per claim group.
type recordingRunner struct {
	mu       sync.Mutex
	inFlight map[service.ClaimGroup]int
	overlaps int
	runs     int
	done     chan struct{}
	expected int
}

func newRecordingRunner(expected int) *recordingRunner {
	return &recordingRunner{
		inFlight: make(map[service.ClaimGroup]int),
		done:     make(chan struct{}),
		expected: expected,
	}
}

func (r *recordingRunner) Run(_ context.Context, job service.BatchJob) error {
	r.mu.Lock()
	r.inFlight[job.Group]++
	if r.inFlight[job.Group] > 1 {
		r.overlaps++
	}
	r.mu.Unlock()

	time.Sleep(time.Millisecond)

	r.mu.Lock()
	r.inFlight[job.Group]--
	r.runs++
	if r.runs == r.expected {
		close(r.done)
	}
	r.mu.Unlock()
	return nil
}

func TestDispatcher_SerializesJobsPerGroup(t *testing.T) {
	const jobs = 40
	runner := newRecordingRunner(jobs)

	d := New(runner, 4, jobs)
	d.Start(context.Background())
	defer d.Stop()

	groups := []service.ClaimGroup{
		{InsurerCode: "INS-A", ProviderName: "City Hospital"},
		{InsurerCode: "INS-A", ProviderName: "County Clinic"},
		{InsurerCode: "INS-B", ProviderName: "City Hospital"},
	}
	for i := 0; i < jobs; i++ {
		job := service.BatchJob{
			Group:          groups[i%len(groups)],
			TriggerClaimID: fmt.Sprintf("claim-%d", i),
		}
		require.NoError(t, d.Enqueue(job))
	}

	select {
	case <-runner.done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not finish in time")
	}

	assert.Zero(t, runner.overlaps, "jobs for one group must never overlap")
	assert.Equal(t, jobs, runner.runs)
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	runner := newRecordingRunner(1)
	d := New(runner, 1, 1)
	d.Start(context.Background())
	d.Stop()

	err := d.Enqueue(service.BatchJob{
		Group: service.ClaimGroup{InsurerCode: "INS-A", ProviderName: "P"},
	})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestDispatcher_ReportsFullQueue(t *testing.T) {
	block := make(chan struct{})
	runner := &blockingRunner{release: block, started: make(chan struct{})}

	// One worker, queue depth one: the first job occupies the worker, the
	// second fills the queue, the third must be rejected.
	d := New(runner, 1, 1)
	d.Start(context.Background())
	defer func() {
		close(block)
		d.Stop()
	}()

	job := service.BatchJob{Group: service.ClaimGroup{InsurerCode: "INS-A", ProviderName: "P"}}
	require.NoError(t, d.Enqueue(job))
	<-runner.started

	require.NoError(t, d.Enqueue(job))
	assert.ErrorIs(t, d.Enqueue(job), ErrQueueFull)
}

type blockingRunner struct {
	release     chan struct{}
	started     chan struct{}
	startedOnce sync.Once
}

func (r *blockingRunner) Run(context.Context, service.BatchJob) error {
	r.startedOnce.Do(func() { close(r.started) })
	<-r.release
	return nil
}
