package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/clearhealth/claimflow/internal/model"
)

// DefaultInsurers returns the canonical insurer set used for seeding a
// fresh deployment.
func DefaultInsurers() []model.Insurer {
	return []model.Insurer{
		{
			Name:                    "Insurer A",
			Code:                    "INS-A",
			DatePreference:          model.PreferSubmissionDate,
			DailyProcessingCapacity: decimal.NewFromInt(1000),
			MinBatchSize:            10,
			MaxBatchSize:            20,
			Specialty:               model.SpecialtyCardiology,
		},
		{
			Name:                    "Insurer B",
			Code:                    "INS-B",
			DatePreference:          model.PreferSubmissionDate,
			DailyProcessingCapacity: decimal.NewFromInt(2000),
			MinBatchSize:            2,
			MaxBatchSize:            10,
			Specialty:               model.SpecialtyNeurology,
		},
		{
			Name:                    "Insurer C",
			Code:                    "INS-C",
			DatePreference:          model.PreferEncounterDate,
			DailyProcessingCapacity: decimal.NewFromInt(600),
			MinBatchSize:            1,
			MaxBatchSize:            7,
			Specialty:               model.SpecialtyOncology,
		},
		{
			Name:                    "Insurer D",
			Code:                    "INS-D",
			DatePreference:          model.PreferEncounterDate,
			DailyProcessingCapacity: decimal.NewFromInt(1500),
			MinBatchSize:            3,
			MaxBatchSize:            8,
			Specialty:               model.SpecialtyOrthopedics,
		},
	}
}

// SeedDefaultInsurers upserts the canonical insurers.
func (s *SQLiteStorage) SeedDefaultInsurers(ctx context.Context) error {
	for _, insurer := range DefaultInsurers() {
		if err := s.SaveInsurer(ctx, &insurer); err != nil {
			return fmt.Errorf("failed to seed insurer %s: %w", insurer.Code, err)
		}
	}
	return nil
}
