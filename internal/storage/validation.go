// Package storage provides the data persistence layer for the claimflow application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clearhealth/claimflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidClaim   = errors.New("invalid claim")
	ErrInvalidInsurer = errors.New("invalid insurer")
	ErrInvalidBatch   = errors.New("invalid batch")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateClaim validates a single claim.
func validateClaim(claim *model.Claim) error {
	if claim == nil {
		return fmt.Errorf("%w: claim", ErrNilParameter)
	}
	if claim.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidClaim)
	}
	if claim.InsurerCode == "" {
		return fmt.Errorf("%w: missing insurer code", ErrInvalidClaim)
	}
	if claim.ProviderName == "" {
		return fmt.Errorf("%w: missing provider name", ErrInvalidClaim)
	}
	if claim.EncounterDate.IsZero() {
		return fmt.Errorf("%w: missing encounter date", ErrInvalidClaim)
	}
	if claim.PriorityLevel < 1 || claim.PriorityLevel > 5 {
		return fmt.Errorf("%w: priority level out of range", ErrInvalidClaim)
	}
	return nil
}

// validateInsurer validates an insurer.
func validateInsurer(insurer *model.Insurer) error {
	if insurer == nil {
		return fmt.Errorf("%w: insurer", ErrNilParameter)
	}
	if insurer.Code == "" {
		return fmt.Errorf("%w: missing code", ErrInvalidInsurer)
	}
	if insurer.MinBatchSize < 1 || insurer.MaxBatchSize < insurer.MinBatchSize {
		return fmt.Errorf("%w: bad batch size bounds", ErrInvalidInsurer)
	}
	return nil
}

// validateBatches validates the batches handed to CommitBatches.
func validateBatches(batches []*model.DayBatch) error {
	if batches == nil {
		return fmt.Errorf("%w: batches", ErrNilParameter)
	}
	for i, batch := range batches {
		if batch == nil {
			return fmt.Errorf("%w: batch at index %d is nil", ErrInvalidBatch, i)
		}
		if batch.ID == "" {
			return fmt.Errorf("%w: batch at index %d missing ID", ErrInvalidBatch, i)
		}
		if len(batch.ClaimIDs) == 0 {
			return fmt.Errorf("%w: batch %s has no claims", ErrInvalidBatch, batch.ID)
		}
	}
	return nil
}
