package budget

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStorage implements Storage on PostgreSQL, for deployments
// where several ingest workers share one spend ledger.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// Migrate creates the budgets table.
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS producer_budgets (
			producer      TEXT PRIMARY KEY,
			daily_limit   BIGINT NOT NULL,
			monthly_limit BIGINT NOT NULL,
			daily_used    BIGINT NOT NULL DEFAULT 0,
			monthly_used  BIGINT NOT NULL DEFAULT 0,
			last_updated  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("budget migration failed: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, producer string) (*Budget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT producer, daily_limit, monthly_limit, daily_used, monthly_used, last_updated
		FROM producer_budgets WHERE producer = $1`, producer)

	var b Budget
	err := row.Scan(&b.Producer, &b.DailyLimit, &b.MonthlyLimit, &b.DailyUsed, &b.MonthlyUsed, &b.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil // not found is valid, the enforcer initializes
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return &b, nil
}

func (s *PostgresStorage) Set(ctx context.Context, b *Budget) error {
	query := `
		INSERT INTO producer_budgets (producer, daily_limit, monthly_limit, daily_used, monthly_used, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (producer) DO UPDATE SET
			daily_used = EXCLUDED.daily_used,
			monthly_used = EXCLUDED.monthly_used,
			last_updated = EXCLUDED.last_updated
	`
	_, err := s.db.ExecContext(ctx, query, b.Producer, b.DailyLimit, b.MonthlyLimit, b.DailyUsed, b.MonthlyUsed, b.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to persist budget: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Limits(ctx context.Context, producer string) (int64, int64, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT daily_limit, monthly_limit FROM producer_budgets WHERE producer = $1`, producer)
	var daily, monthly int64
	err := row.Scan(&daily, &monthly)
	if err == sql.ErrNoRows {
		return DefaultDailyLimitCents, DefaultMonthlyLimitCents, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get limits: %w", err)
	}
	return daily, monthly, nil
}

func (s *PostgresStorage) SetLimits(ctx context.Context, producer string, daily, monthly int64) error {
	query := `
		INSERT INTO producer_budgets (producer, daily_limit, monthly_limit, daily_used, monthly_used, last_updated)
		VALUES ($1, $2, $3, 0, 0, NOW())
		ON CONFLICT (producer) DO UPDATE SET
			daily_limit = EXCLUDED.daily_limit,
			monthly_limit = EXCLUDED.monthly_limit
	`
	_, err := s.db.ExecContext(ctx, query, producer, daily, monthly)
	if err != nil {
		return fmt.Errorf("failed to set limits: %w", err)
	}
	return nil
}
