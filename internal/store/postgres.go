package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
// Replace operations swap the whole collection inside one transaction so
// readers never observe a half-applied snapshot.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) replace(ctx context.Context, table string, insert func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace %s: begin: %w", table, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("replace %s: clear: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("replace %s: insert: %w", table, err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ReplaceManagers(ctx context.Context, managers []model.Manager) error {
	return s.replace(ctx, "margin_managers", func(tx pgx.Tx) error {
		for _, m := range managers {
			_, err := tx.Exec(ctx,
				`INSERT INTO margin_managers (id, owner, created_at) VALUES ($1, $2, $3)`,
				m.ID, m.Owner, m.CreatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) ReplaceLoans(ctx context.Context, loans []model.Loan) error {
	return s.replace(ctx, "loans", func(tx pgx.Tx) error {
		for _, l := range loans {
			_, err := tx.Exec(ctx,
				`INSERT INTO loans (margin_manager_id, margin_pool_id, loan_amount, status, borrowed_at, repaid_at)
				 VALUES ($1, $2, $3::NUMERIC, $4, $5, $6)`,
				l.MarginManagerID, l.MarginPoolID, l.LoanAmount.String(),
				string(l.Status), l.BorrowedAt, l.RepaidAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) ReplaceLiquidations(ctx context.Context, liquidations []model.Liquidation) error {
	return s.replace(ctx, "liquidations", func(tx pgx.Tx) error {
		for _, q := range liquidations {
			_, err := tx.Exec(ctx,
				`INSERT INTO liquidations (margin_manager_id, margin_pool_id, liquidation_amount,
				                           default_amount, pool_reward_amount, liquidator_base_reward,
				                           liquidator_quote_reward, liquidated_at)
				 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8)`,
				q.MarginManagerID, q.MarginPoolID, q.LiquidationAmount.String(),
				q.DefaultAmount.String(), q.PoolRewardAmount.String(),
				q.LiquidatorBaseReward.String(), q.LiquidatorQuoteReward.String(),
				q.LiquidatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) ReplacePositionSummaries(ctx context.Context, summaries []model.PositionSummary) error {
	return s.replace(ctx, "position_summaries", func(tx pgx.Tx) error {
		for _, ps := range summaries {
			_, err := tx.Exec(ctx,
				`INSERT INTO position_summaries (manager_id, base_asset, quote_asset, base_amount,
				                                 quote_amount, debt_amount, risk_ratio,
				                                 liquidation_risk_ratio, updated_at)
				 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9)`,
				ps.ManagerID, ps.BaseAsset, ps.QuoteAsset, ps.BaseAmount.String(),
				ps.QuoteAmount.String(), ps.DebtAmount.String(), ps.RiskRatio.String(),
				ps.LiquidationRiskRatio.String(), ps.UpdatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListManagers(ctx context.Context) ([]model.Manager, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner, created_at FROM margin_managers ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var managers []model.Manager
	for rows.Next() {
		var m model.Manager
		if err := rows.Scan(&m.ID, &m.Owner, &m.CreatedAt); err != nil {
			return nil, err
		}
		managers = append(managers, m)
	}
	return managers, rows.Err()
}

func (s *PostgresStore) ListLoans(ctx context.Context) ([]model.Loan, error) {
	return s.queryLoans(ctx,
		`SELECT margin_manager_id, margin_pool_id, loan_amount::TEXT, status, borrowed_at, repaid_at
		 FROM loans ORDER BY borrowed_at`)
}

func (s *PostgresStore) ListLoansByManager(ctx context.Context, managerID string) ([]model.Loan, error) {
	return s.queryLoans(ctx,
		`SELECT margin_manager_id, margin_pool_id, loan_amount::TEXT, status, borrowed_at, repaid_at
		 FROM loans WHERE margin_manager_id = $1 ORDER BY borrowed_at`, managerID)
}

func (s *PostgresStore) queryLoans(ctx context.Context, sql string, args ...interface{}) ([]model.Loan, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		var l model.Loan
		var amount, status string
		if err := rows.Scan(&l.MarginManagerID, &l.MarginPoolID, &amount,
			&status, &l.BorrowedAt, &l.RepaidAt); err != nil {
			return nil, err
		}
		l.LoanAmount, _ = decimal.NewFromString(amount)
		l.Status = model.LoanStatus(status)
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (s *PostgresStore) ListLiquidations(ctx context.Context) ([]model.Liquidation, error) {
	return s.queryLiquidations(ctx,
		`SELECT margin_manager_id, margin_pool_id, liquidation_amount::TEXT, default_amount::TEXT,
		        pool_reward_amount::TEXT, liquidator_base_reward::TEXT, liquidator_quote_reward::TEXT,
		        liquidated_at
		 FROM liquidations ORDER BY liquidated_at`)
}

func (s *PostgresStore) ListLiquidationsByManager(ctx context.Context, managerID string) ([]model.Liquidation, error) {
	return s.queryLiquidations(ctx,
		`SELECT margin_manager_id, margin_pool_id, liquidation_amount::TEXT, default_amount::TEXT,
		        pool_reward_amount::TEXT, liquidator_base_reward::TEXT, liquidator_quote_reward::TEXT,
		        liquidated_at
		 FROM liquidations WHERE margin_manager_id = $1 ORDER BY liquidated_at`, managerID)
}

func (s *PostgresStore) queryLiquidations(ctx context.Context, sql string, args ...interface{}) ([]model.Liquidation, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var liqs []model.Liquidation
	for rows.Next() {
		var q model.Liquidation
		var amount, def, poolReward, baseReward, quoteReward string
		if err := rows.Scan(&q.MarginManagerID, &q.MarginPoolID, &amount, &def,
			&poolReward, &baseReward, &quoteReward, &q.LiquidatedAt); err != nil {
			return nil, err
		}
		q.LiquidationAmount, _ = decimal.NewFromString(amount)
		q.DefaultAmount, _ = decimal.NewFromString(def)
		q.PoolRewardAmount, _ = decimal.NewFromString(poolReward)
		q.LiquidatorBaseReward, _ = decimal.NewFromString(baseReward)
		q.LiquidatorQuoteReward, _ = decimal.NewFromString(quoteReward)
		liqs = append(liqs, q)
	}
	return liqs, rows.Err()
}

func (s *PostgresStore) ListPositionSummaries(ctx context.Context) ([]model.PositionSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT manager_id, base_asset, quote_asset, base_amount::TEXT, quote_amount::TEXT,
		        debt_amount::TEXT, risk_ratio::TEXT, liquidation_risk_ratio::TEXT, updated_at
		 FROM position_summaries ORDER BY manager_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.PositionSummary
	for rows.Next() {
		ps, err := scanPositionSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *ps)
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) GetManager(ctx context.Context, id string) (*model.Manager, error) {
	var m model.Manager
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner, created_at FROM margin_managers WHERE id = $1`, id).
		Scan(&m.ID, &m.Owner, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("manager %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get manager %s: %w", id, err)
	}
	return &m, nil
}

func (s *PostgresStore) GetPositionSummary(ctx context.Context, managerID string) (*model.PositionSummary, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT manager_id, base_asset, quote_asset, base_amount::TEXT, quote_amount::TEXT,
		        debt_amount::TEXT, risk_ratio::TEXT, liquidation_risk_ratio::TEXT, updated_at
		 FROM position_summaries WHERE manager_id = $1`, managerID)

	ps, err := scanPositionSummary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("position summary for manager %s: %w", managerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get position summary %s: %w", managerID, err)
	}
	return ps, nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanPositionSummary(row scannable) (*model.PositionSummary, error) {
	var ps model.PositionSummary
	var base, quote, debt, risk, liqRisk string
	if err := row.Scan(&ps.ManagerID, &ps.BaseAsset, &ps.QuoteAsset,
		&base, &quote, &debt, &risk, &liqRisk, &ps.UpdatedAt); err != nil {
		return nil, err
	}
	ps.BaseAmount, _ = decimal.NewFromString(base)
	ps.QuoteAmount, _ = decimal.NewFromString(quote)
	ps.DebtAmount, _ = decimal.NewFromString(debt)
	ps.RiskRatio, _ = decimal.NewFromString(risk)
	ps.LiquidationRiskRatio, _ = decimal.NewFromString(liqRisk)
	return &ps, nil
}
