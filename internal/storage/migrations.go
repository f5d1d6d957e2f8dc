package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS insurers (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					code TEXT UNIQUE NOT NULL,
					email TEXT,
					claim_date_preference TEXT NOT NULL DEFAULT 'submission_date',
					daily_processing_capacity TEXT NOT NULL,
					min_batch_size INTEGER NOT NULL,
					max_batch_size INTEGER NOT NULL,
					specialty TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_insurers_code ON insurers(code)`,

				`CREATE TABLE IF NOT EXISTS claims (
					id TEXT PRIMARY KEY,
					insurer_code TEXT NOT NULL,
					provider_name TEXT NOT NULL,
					encounter_date DATETIME NOT NULL,
					specialty TEXT NOT NULL,
					priority_level INTEGER NOT NULL,
					total_amount TEXT NOT NULL,
					base_processing_cost TEXT NOT NULL DEFAULT '0',
					items TEXT NOT NULL,
					batch_id TEXT,
					batch_date DATETIME,
					is_processed BOOLEAN DEFAULT 0,
					processed_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_claims_insurer_code ON claims(insurer_code)`,
				`CREATE INDEX idx_claims_provider_name ON claims(provider_name)`,
				`CREATE INDEX idx_claims_batch_id ON claims(batch_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Composite index for the unprocessed-claims cursor",
		Up: func(tx *sql.Tx) error {
			// The engine always filters on all three columns together; the
			// single-column indexes from v1 stay for the API lookups.
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_claims_pending
				ON claims(insurer_code, provider_name, is_processed)`)
			if err != nil {
				return fmt.Errorf("failed to create pending-claims index: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
