package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/model"
	"github.com/clearhealth/claimflow/internal/service"
)

const claimColumns = `id, insurer_code, provider_name, encounter_date, specialty,
	priority_level, total_amount, base_processing_cost, items,
	batch_id, batch_date, is_processed, created_at`

// SaveClaim inserts a new claim.
func (s *SQLiteStorage) SaveClaim(ctx context.Context, claim *model.Claim) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClaim(claim); err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(claim.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claims (
			id, insurer_code, provider_name, encounter_date, specialty,
			priority_level, total_amount, base_processing_cost, items,
			is_processed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		claim.ID,
		claim.InsurerCode,
		claim.ProviderName,
		claim.EncounterDate,
		string(claim.Specialty),
		claim.PriorityLevel,
		claim.TotalAmount.String(),
		claim.BaseProcessingCost.String(),
		string(itemsJSON),
		claim.IsProcessed,
		claim.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

// GetClaimByID fetches a single claim.
func (s *SQLiteStorage) GetClaimByID(ctx context.Context, id string) (*model.Claim, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = ?`, id)

	claim, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("claim %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// UpdateBaseProcessingCost stamps the persisted base cost for a claim.
// This happens exactly once, at intake.
func (s *SQLiteStorage) UpdateBaseProcessingCost(ctx context.Context, claimID string, cost decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(claimID, "claimID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE claims SET base_processing_cost = ? WHERE id = ?`,
		cost.String(), claimID)
	if err != nil {
		return fmt.Errorf("failed to update base processing cost: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("claim %s: %w", claimID, common.ErrNotFound)
	}
	return nil
}

// UnprocessedClaims streams the unbatched backlog for one insurer/provider
// pair, ordered by the insurer's preferred date ascending and base
// processing cost descending. Highest-cost claims come first so the packer
// places the heaviest items while capacity is most available.
func (s *SQLiteStorage) UnprocessedClaims(ctx context.Context, group service.ClaimGroup, pref model.DatePreference) (service.ClaimIterator, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(group.InsurerCode, "insurerCode"); err != nil {
		return nil, err
	}
	if err := validateString(group.ProviderName, "providerName"); err != nil {
		return nil, err
	}

	dateColumn := "created_at"
	if pref == model.PreferEncounterDate {
		dateColumn = "encounter_date"
	}

	// base_processing_cost is stored as TEXT; cast for a numeric sort.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE insurer_code = ? AND provider_name = ?
		  AND is_processed = 0 AND batch_id IS NULL
		ORDER BY `+dateColumn+` ASC, CAST(base_processing_cost AS REAL) DESC
	`, group.InsurerCode, group.ProviderName)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed claims: %w", err)
	}

	return &claimIterator{rows: rows}, nil
}

// BatchedClaims returns claims for the group that already carry a batch
// assignment but are still flagged unprocessed.
func (s *SQLiteStorage) BatchedClaims(ctx context.Context, group service.ClaimGroup) ([]model.Claim, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE insurer_code = ? AND provider_name = ?
		  AND is_processed = 0 AND batch_id IS NOT NULL
		ORDER BY batch_date ASC, id ASC
	`, group.InsurerCode, group.ProviderName)
	if err != nil {
		return nil, fmt.Errorf("failed to query batched claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var claims []model.Claim
	for rows.Next() {
		claim, scanErr := scanClaim(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", scanErr)
		}
		claims = append(claims, *claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batched claims: %w", err)
	}
	return claims, nil
}

// CommitBatches stamps batch id and date onto every member claim of every
// batch. The whole commit is one database transaction: a run lands entirely
// or not at all.
func (s *SQLiteStorage) CommitBatches(ctx context.Context, batches []*model.DayBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBatches(batches); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, batch := range batches {
		placeholders := strings.Repeat("?,", len(batch.ClaimIDs))
		placeholders = placeholders[:len(placeholders)-1]

		args := make([]any, 0, len(batch.ClaimIDs)+2)
		args = append(args, batch.ID, batch.Date.Format("2006-01-02"))
		for _, id := range batch.ClaimIDs {
			args = append(args, id)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE claims SET batch_id = ?, batch_date = ? WHERE id IN (`+placeholders+`)`,
			args...)
		if err != nil {
			return fmt.Errorf("failed to commit batch %s: %w", batch.ID, err)
		}
	}

	return tx.Commit()
}

// PendingGroups lists the distinct insurer/provider pairs that still have
// unbatched claims.
func (s *SQLiteStorage) PendingGroups(ctx context.Context) ([]service.ClaimGroup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT insurer_code, provider_name FROM claims
		WHERE is_processed = 0 AND batch_id IS NULL
		ORDER BY insurer_code, provider_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []service.ClaimGroup
	for rows.Next() {
		var g service.ClaimGroup
		if err := rows.Scan(&g.InsurerCode, &g.ProviderName); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending groups: %w", err)
	}
	return groups, nil
}

// claimIterator adapts sql.Rows to the service.ClaimIterator contract.
// It is forward-only and single-use; the backlog is never materialized.
type claimIterator struct {
	rows    *sql.Rows
	current *model.Claim
	err     error
}

func (it *claimIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	claim, err := scanClaim(it.rows)
	if err != nil {
		it.err = err
		return false
	}
	it.current = claim
	return true
}

func (it *claimIterator) Claim() *model.Claim {
	return it.current
}

func (it *claimIterator) Err() error {
	return it.err
}

func (it *claimIterator) Close() error {
	return it.rows.Close()
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*model.Claim, error) {
	var (
		claim     model.Claim
		specialty string
		amount    string
		baseCost  string
		itemsJSON string
		batchID   sql.NullString
		batchDate sql.NullTime
	)

	err := row.Scan(
		&claim.ID,
		&claim.InsurerCode,
		&claim.ProviderName,
		&claim.EncounterDate,
		&specialty,
		&claim.PriorityLevel,
		&amount,
		&baseCost,
		&itemsJSON,
		&batchID,
		&batchDate,
		&claim.IsProcessed,
		&claim.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	claim.Specialty = model.Specialty(specialty)

	if claim.TotalAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad total_amount %q: %w", amount, err)
	}
	if claim.BaseProcessingCost, err = decimal.NewFromString(baseCost); err != nil {
		return nil, fmt.Errorf("bad base_processing_cost %q: %w", baseCost, err)
	}
	if err = json.Unmarshal([]byte(itemsJSON), &claim.Items); err != nil {
		return nil, fmt.Errorf("bad line items: %w", err)
	}

	if batchID.Valid {
		claim.BatchID = batchID.String
	}
	if batchDate.Valid {
		d := batchDate.Time
		claim.BatchDate = &d
	}

	return &claim, nil
}
