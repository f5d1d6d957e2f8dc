// Package engine implements the core batch assignment engine: a greedy,
// day-advancing packer that groups unbatched claims into per-provider,
// per-day batches under the insurer's capacity and size policy.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/costing"
	"github.com/clearhealth/claimflow/internal/model"
	"github.com/clearhealth/claimflow/internal/service"
)

// maxAdditionalDays bounds how far past the start date the engine looks for
// a feasible batch: the start date plus this many more, 31 candidates total.
const maxAdditionalDays = 30

// BatchingEngine assigns unbatched claims to day-batches. It is safe for
// concurrent use; runs for the same insurer/provider pair are serialized
// internally.
type BatchingEngine struct {
	storage  Storage
	calc     *costing.Calculator
	notifier service.Notifier
	locks    *keyMutex
	now      func() time.Time
}

// New creates a batching engine with the given dependencies.
func New(storage Storage, calc *costing.Calculator, notifier service.Notifier) *BatchingEngine {
	return &BatchingEngine{
		storage:  storage,
		calc:     calc,
		notifier: notifier,
		locks:    newKeyMutex(),
		now:      time.Now,
	}
}

// Run executes one batching pass over the full unbatched backlog for the
// job's insurer/provider pair. An unknown insurer aborts the run before any
// claim is touched. Placement state lives entirely in this call frame and
// is committed in a single storage transaction at the end.
func (e *BatchingEngine) Run(ctx context.Context, job service.BatchJob) error {
	unlock := e.locks.Lock(job.Group.InsurerCode + "|" + job.Group.ProviderName)
	defer unlock()

	insurer, err := e.storage.GetInsurerByCode(ctx, job.Group.InsurerCode)
	if err != nil {
		common.LogError(err, "Insurer lookup failed, aborting batching run", common.Fields{
			"insurer_code": job.Group.InsurerCode,
			"provider":     job.Group.ProviderName,
		})
		return fmt.Errorf("batching run for %s/%s: %w", job.Group.InsurerCode, job.Group.ProviderName, err)
	}

	r := &run{
		insurer:  insurer,
		group:    job.Group,
		calc:     e.calc,
		start:    e.now(),
		batches:  make(map[string]*dayBatch),
		capacity: insurer.DailyProcessingCapacity,
	}

	// Seed provisional state from batches committed by earlier runs so new
	// claims pack against real remaining capacity. Already-batched claims
	// are never re-assigned.
	seeded, err := e.storage.BatchedClaims(ctx, job.Group)
	if err != nil {
		return fmt.Errorf("failed to load committed batches: %w", err)
	}
	for i := range seeded {
		r.seed(&seeded[i])
	}

	it, err := e.storage.UnprocessedClaims(ctx, job.Group, insurer.DatePreference)
	if err != nil {
		return fmt.Errorf("failed to open claim cursor: %w", err)
	}
	defer func() { _ = it.Close() }()

	placed, skipped := 0, 0
	for it.Next() {
		if r.placeClaim(it.Claim()) {
			placed++
		} else {
			skipped++
		}
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("claim cursor failed: %w", err)
	}

	newBatches := r.committable()
	if len(newBatches) > 0 {
		if err := e.storage.CommitBatches(ctx, newBatches); err != nil {
			return fmt.Errorf("failed to commit batches: %w", err)
		}
	}

	slog.Info("Batching run complete",
		"insurer_code", job.Group.InsurerCode,
		"provider", job.Group.ProviderName,
		"claims_placed", placed,
		"claims_skipped", skipped,
		"batches", len(newBatches))

	e.notify(ctx, insurer, job.TriggerClaimID)

	return nil
}

// notify sends the once-per-run email referencing the claim that triggered
// the run. Delivery problems are logged, never fatal: the batches are
// already committed.
func (e *BatchingEngine) notify(ctx context.Context, insurer *model.Insurer, triggerClaimID string) {
	if e.notifier == nil || insurer.Email == "" || triggerClaimID == "" {
		return
	}

	// Re-read so the mail carries the batch id and date the run just stamped.
	claim, err := e.storage.GetClaimByID(ctx, triggerClaimID)
	if err != nil {
		common.LogError(err, "Failed to load trigger claim for notification", common.Fields{
			"claim_id": triggerClaimID,
		})
		return
	}

	err = common.WithRetry(ctx, func() error {
		return e.notifier.ClaimBatched(ctx, claim, insurer)
	}, service.RetryOptions{MaxAttempts: 3})
	if err != nil {
		common.LogError(err, "Failed to notify insurer", common.Fields{
			"insurer_code": insurer.Code,
			"claim_id":     triggerClaimID,
		})
	}
}

// run holds the state of a single batching pass. It is constructed per
// invocation and never shared.
type run struct {
	insurer  *model.Insurer
	group    service.ClaimGroup
	calc     *costing.Calculator
	start    time.Time
	batches  map[string]*dayBatch
	capacity decimal.Decimal
}

// dayBatch is the provisional batch for one provider/date key. claimCount
// and totalCost include claims committed by earlier runs; newClaimIDs holds
// only the claims this run placed.
type dayBatch struct {
	date        time.Time
	totalCost   decimal.Decimal
	claimCount  int
	newClaimIDs []string
}

// seed folds an already-committed claim into the provisional state.
func (r *run) seed(claim *model.Claim) {
	if claim.BatchDate == nil || claim.BatchID == "" {
		return
	}
	scaled := r.calc.TotalProcessingCost(claim, claim.BatchDate.Day())

	batch, ok := r.batches[claim.BatchID]
	if !ok {
		batch = &dayBatch{date: *claim.BatchDate, totalCost: decimal.Zero}
		r.batches[claim.BatchID] = batch
	}
	batch.totalCost = batch.totalCost.Add(scaled)
	batch.claimCount++
}

// placeClaim assigns one claim to the earliest feasible day, starting at the
// run's start date and advancing one calendar day at a time. It reports
// whether the claim found a batch; an unplaced claim stays unbatched and is
// picked up again by a future run.
func (r *run) placeClaim(claim *model.Claim) bool {
	// A claim whose base cost alone exceeds the daily capacity can never fit
	// any single day's batch under this insurer's policy.
	if claim.BaseProcessingCost.GreaterThan(r.capacity) {
		slog.Debug("Claim exceeds daily capacity, skipping",
			"claim_id", claim.ID,
			"base_cost", claim.BaseProcessingCost,
			"capacity", r.capacity)
		return false
	}

	date := r.start
	for extra := 0; extra <= maxAdditionalDays; extra++ {
		if r.addToBatch(claim, date) {
			return true
		}
		date = date.AddDate(0, 0, 1)
	}
	return false
}

// addToBatch attempts to place the claim into the batch for date, creating
// the batch when the admission rule allows it.
func (r *run) addToBatch(claim *model.Claim, date time.Time) bool {
	batchID := model.BatchID(r.group.ProviderName, date)
	scaled := r.calc.TotalProcessingCost(claim, date.Day())

	if !r.canAddToBatch(claim, batchID, scaled) {
		return false
	}

	batch, ok := r.batches[batchID]
	if !ok {
		batch = &dayBatch{date: date, totalCost: decimal.Zero}
		r.batches[batchID] = batch
	}
	batch.totalCost = batch.totalCost.Add(scaled)
	batch.claimCount++
	batch.newClaimIDs = append(batch.newClaimIDs, claim.ID)
	return true
}

// canAddToBatch is the admission rule for one claim against one day's batch.
func (r *run) canAddToBatch(claim *model.Claim, batchID string, scaled decimal.Decimal) bool {
	// Redundant safety check; placeClaim already filtered on this.
	if claim.BaseProcessingCost.GreaterThan(r.capacity) {
		return false
	}

	batch, ok := r.batches[batchID]
	if !ok {
		return true
	}

	newTotal := batch.totalCost.Add(scaled)
	count := batch.claimCount

	if count >= r.insurer.MaxBatchSize {
		return false
	}

	// An under-filled batch must not be committed to its cost ceiling:
	// reject while the batch is below minimum size and the addition would
	// reach or pass capacity.
	if newTotal.GreaterThanOrEqual(r.capacity) && count < r.insurer.MinBatchSize {
		return false
	}

	return newTotal.LessThanOrEqual(r.capacity)
}

// committable returns the day-batches that gained at least one claim this
// run, ready for the commit collaborator.
func (r *run) committable() []*model.DayBatch {
	var out []*model.DayBatch
	for id, batch := range r.batches {
		if len(batch.newClaimIDs) == 0 {
			continue
		}
		out = append(out, &model.DayBatch{
			ID:        id,
			Date:      batch.date,
			TotalCost: batch.totalCost,
			ClaimIDs:  batch.newClaimIDs,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
