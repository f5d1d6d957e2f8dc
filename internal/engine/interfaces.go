package engine

import (
	"context"

	"github.com/clearhealth/claimflow/internal/model"
	"github.com/clearhealth/claimflow/internal/service"
)

// Storage is the slice of the persistence contract the engine touches.
// service.Storage satisfies it.
type Storage interface {
	GetInsurerByCode(ctx context.Context, code string) (*model.Insurer, error)
	GetClaimByID(ctx context.Context, id string) (*model.Claim, error)
	UnprocessedClaims(ctx context.Context, group service.ClaimGroup, pref model.DatePreference) (service.ClaimIterator, error)
	BatchedClaims(ctx context.Context, group service.ClaimGroup) ([]model.Claim, error)
	CommitBatches(ctx context.Context, batches []*model.DayBatch) error
}
