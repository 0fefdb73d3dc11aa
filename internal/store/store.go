// Package store defines the persistence interface for the analytics engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing and cache-less deployments).
package store

import (
	"context"
	"errors"

	"github.com/marginscope/analytics-engine/internal/model"
)

// ErrNotFound is returned by the per-manager reads when no record matches.
// Callers distinguish it from backend failures with errors.Is.
var ErrNotFound = errors.New("store: not found")

// Store persists the raw protocol collections between refreshes. The
// dashboard recomputes all derived views from these arrays on demand, so the
// write path is a full snapshot swap: each Replace call discards the previous
// collection.
type Store interface {
	// --- Snapshot writes ---

	ReplaceManagers(ctx context.Context, managers []model.Manager) error
	ReplaceLoans(ctx context.Context, loans []model.Loan) error
	ReplaceLiquidations(ctx context.Context, liquidations []model.Liquidation) error
	ReplacePositionSummaries(ctx context.Context, summaries []model.PositionSummary) error

	// --- Collection reads ---

	ListManagers(ctx context.Context) ([]model.Manager, error)
	ListLoans(ctx context.Context) ([]model.Loan, error)
	ListLiquidations(ctx context.Context) ([]model.Liquidation, error)
	ListPositionSummaries(ctx context.Context) ([]model.PositionSummary, error)

	// --- Per-manager reads ---

	// GetManager retrieves a manager by id.
	GetManager(ctx context.Context, id string) (*model.Manager, error)

	// ListLoansByManager returns the loans of one manager, oldest first.
	ListLoansByManager(ctx context.Context, managerID string) ([]model.Loan, error)

	// ListLiquidationsByManager returns one manager's liquidations, oldest first.
	ListLiquidationsByManager(ctx context.Context, managerID string) ([]model.Liquidation, error)

	// GetPositionSummary retrieves the external risk summary for a manager.
	GetPositionSummary(ctx context.Context, managerID string) (*model.PositionSummary, error)
}
