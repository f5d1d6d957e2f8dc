package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/model"
)

const insurerColumns = `name, code, email, claim_date_preference,
	daily_processing_capacity, min_batch_size, max_batch_size, specialty`

// GetInsurerByCode looks up the batching policy for one insurer.
func (s *SQLiteStorage) GetInsurerByCode(ctx context.Context, code string) (*model.Insurer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+insurerColumns+` FROM insurers WHERE code = ?`, code)

	insurer, err := scanInsurer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insurer %s: %w", code, common.ErrInsurerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insurer: %w", err)
	}
	return insurer, nil
}

// SaveInsurer inserts an insurer, or replaces its policy if the code exists.
// Used by seeding; the batching flow itself never writes insurers.
func (s *SQLiteStorage) SaveInsurer(ctx context.Context, insurer *model.Insurer) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInsurer(insurer); err != nil {
		return err
	}

	var email any
	if insurer.Email != "" {
		email = insurer.Email
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insurers (
			name, code, email, claim_date_preference,
			daily_processing_capacity, min_batch_size, max_batch_size, specialty
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			claim_date_preference = excluded.claim_date_preference,
			daily_processing_capacity = excluded.daily_processing_capacity,
			min_batch_size = excluded.min_batch_size,
			max_batch_size = excluded.max_batch_size,
			specialty = excluded.specialty
	`,
		insurer.Name,
		insurer.Code,
		email,
		string(insurer.DatePreference),
		insurer.DailyProcessingCapacity.String(),
		insurer.MinBatchSize,
		insurer.MaxBatchSize,
		string(insurer.Specialty),
	)
	if err != nil {
		return fmt.Errorf("failed to save insurer: %w", err)
	}
	return nil
}

// ListInsurers returns every configured insurer.
func (s *SQLiteStorage) ListInsurers(ctx context.Context) ([]model.Insurer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+insurerColumns+` FROM insurers ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query insurers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var insurers []model.Insurer
	for rows.Next() {
		insurer, scanErr := scanInsurer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan insurer: %w", scanErr)
		}
		insurers = append(insurers, *insurer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read insurers: %w", err)
	}
	return insurers, nil
}

func scanInsurer(row rowScanner) (*model.Insurer, error) {
	var (
		insurer   model.Insurer
		email     sql.NullString
		pref      string
		capacity  string
		specialty string
	)

	err := row.Scan(
		&insurer.Name,
		&insurer.Code,
		&email,
		&pref,
		&capacity,
		&insurer.MinBatchSize,
		&insurer.MaxBatchSize,
		&specialty,
	)
	if err != nil {
		return nil, err
	}

	if email.Valid {
		insurer.Email = email.String
	}
	insurer.DatePreference = model.DatePreference(pref)
	insurer.Specialty = model.Specialty(specialty)

	if insurer.DailyProcessingCapacity, err = decimal.NewFromString(capacity); err != nil {
		return nil, fmt.Errorf("bad daily_processing_capacity %q: %w", capacity, err)
	}

	return &insurer, nil
}
