package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/model"
	"github.com/clearhealth/claimflow/internal/service"
)

// MockStorage is a test implementation of the engine's Storage contract.
// The backlog is returned in the order it was configured, which mirrors the
// supplier's date-then-cost ordering.
type MockStorage struct {
	insurers  map[string]*model.Insurer
	claims    map[string]*model.Claim
	backlog   []string
	batched   []string
	committed []*model.DayBatch
	commitErr error
	cursorErr error
	mu        sync.Mutex
}

// NewMockStorage creates an empty mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		insurers: make(map[string]*model.Insurer),
		claims:   make(map[string]*model.Claim),
	}
}

// AddInsurer registers an insurer policy.
func (m *MockStorage) AddInsurer(insurer *model.Insurer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insurers[insurer.Code] = insurer
}

// AddBacklog appends a claim to the unbatched backlog in supplier order.
func (m *MockStorage) AddBacklog(claim *model.Claim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.ID] = claim
	m.backlog = append(m.backlog, claim.ID)
}

// AddBatched registers a claim that a previous run already committed.
func (m *MockStorage) AddBatched(claim *model.Claim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.ID] = claim
	m.batched = append(m.batched, claim.ID)
}

// SetCommitErr makes CommitBatches fail.
func (m *MockStorage) SetCommitErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitErr = err
}

// SetCursorErr makes the claim cursor fail mid-iteration.
func (m *MockStorage) SetCursorErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorErr = err
}

// Committed returns every batch handed to CommitBatches.
func (m *MockStorage) Committed() []*model.DayBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

// GetInsurerByCode implements Storage.
func (m *MockStorage) GetInsurerByCode(_ context.Context, code string) (*model.Insurer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	insurer, ok := m.insurers[code]
	if !ok {
		return nil, fmt.Errorf("insurer %s: %w", code, common.ErrInsurerNotFound)
	}
	return insurer, nil
}

// GetClaimByID implements Storage.
func (m *MockStorage) GetClaimByID(_ context.Context, id string) (*model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim, ok := m.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", id, common.ErrNotFound)
	}
	copied := *claim
	return &copied, nil
}

// UnprocessedClaims implements Storage.
func (m *MockStorage) UnprocessedClaims(_ context.Context, _ service.ClaimGroup, _ model.DatePreference) (service.ClaimIterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var claims []*model.Claim
	for _, id := range m.backlog {
		if claim := m.claims[id]; claim.BatchID == "" {
			copied := *claim
			claims = append(claims, &copied)
		}
	}
	return &sliceIterator{claims: claims, failAfter: m.cursorErr}, nil
}

// BatchedClaims implements Storage.
func (m *MockStorage) BatchedClaims(_ context.Context, _ service.ClaimGroup) ([]model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var claims []model.Claim
	for _, id := range m.batched {
		claims = append(claims, *m.claims[id])
	}
	for _, id := range m.backlog {
		if claim := m.claims[id]; claim.BatchID != "" {
			claims = append(claims, *claim)
		}
	}
	return claims, nil
}

// CommitBatches implements Storage. On success it stamps batch id and date
// onto the member claims, like the real store.
func (m *MockStorage) CommitBatches(_ context.Context, batches []*model.DayBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commitErr != nil {
		return m.commitErr
	}

	for _, batch := range batches {
		for _, id := range batch.ClaimIDs {
			claim, ok := m.claims[id]
			if !ok {
				return fmt.Errorf("claim %s: %w", id, common.ErrNotFound)
			}
			date := batch.Date
			claim.BatchID = batch.ID
			claim.BatchDate = &date
		}
	}
	m.committed = append(m.committed, batches...)
	return nil
}

// sliceIterator serves a fixed slice of claims through the cursor contract.
type sliceIterator struct {
	claims    []*model.Claim
	failAfter error
	pos       int
	err       error
	closed    bool
}

func (it *sliceIterator) Next() bool {
	if it.err != nil || it.pos >= len(it.claims) {
		if it.failAfter != nil && it.err == nil {
			it.err = it.failAfter
		}
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Claim() *model.Claim {
	return it.claims[it.pos-1]
}

func (it *sliceIterator) Err() error {
	return it.err
}

func (it *sliceIterator) Close() error {
	it.closed = true
	return nil
}
