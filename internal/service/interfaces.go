// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clearhealth/claimflow/internal/model"
)

// ClaimIterator is a lazy, forward-only, single-use cursor over claims.
// Iteration follows the sql.Rows idiom:
//
//	for it.Next() {
//	    claim := it.Claim()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
//
// Callers must Close the iterator when done.
type ClaimIterator interface {
	Next() bool
	Claim() *model.Claim
	Err() error
	Close() error
}

// ClaimGroup identifies the unit the engine serializes on: all unprocessed
// claims for one insurer and provider.
type ClaimGroup struct {
	InsurerCode  string
	ProviderName string
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Claim operations
	SaveClaim(ctx context.Context, claim *model.Claim) error
	GetClaimByID(ctx context.Context, id string) (*model.Claim, error)
	UpdateBaseProcessingCost(ctx context.Context, claimID string, cost decimal.Decimal) error

	// UnprocessedClaims streams every unbatched claim for the group, ordered
	// by the insurer's preferred date ascending, then base processing cost
	// descending.
	UnprocessedClaims(ctx context.Context, group ClaimGroup, pref model.DatePreference) (ClaimIterator, error)

	// BatchedClaims returns the claims for the group that already carry a
	// batch assignment but are not yet processed. The engine rebuilds its
	// provisional day-batch state from them so re-runs pack against real
	// remaining capacity instead of re-assigning committed claims.
	BatchedClaims(ctx context.Context, group ClaimGroup) ([]model.Claim, error)

	// CommitBatches stamps batch id and date onto every member claim of
	// every batch, atomically for the whole slice.
	CommitBatches(ctx context.Context, batches []*model.DayBatch) error

	// PendingGroups lists the distinct insurer/provider pairs that still
	// have unprocessed claims.
	PendingGroups(ctx context.Context) ([]ClaimGroup, error)

	// Insurer operations
	GetInsurerByCode(ctx context.Context, code string) (*model.Insurer, error)
	SaveInsurer(ctx context.Context, insurer *model.Insurer) error
	ListInsurers(ctx context.Context) ([]model.Insurer, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Notifier delivers the once-per-run notification to an insurer. The claim
// passed is the one that triggered the run, re-read after commit so its
// batch fields are current.
type Notifier interface {
	ClaimBatched(ctx context.Context, claim *model.Claim, insurer *model.Insurer) error
}

// BatchJob asks for one engine run over a claim group, attributed to the
// claim that triggered it.
type BatchJob struct {
	Group          ClaimGroup
	TriggerClaimID string
}

// Dispatcher accepts batching jobs for asynchronous execution. Jobs for the
// same ClaimGroup must never run concurrently.
type Dispatcher interface {
	Enqueue(job BatchJob) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
