// Package model defines the core domain types shared across the analytics engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan. Transitions are monotonic:
// borrowed → repaid (terminal) or borrowed → liquidated.
type LoanStatus string

const (
	LoanBorrowed   LoanStatus = "borrowed"
	LoanRepaid     LoanStatus = "repaid"
	LoanLiquidated LoanStatus = "liquidated"
)

// Manager is an on-chain margin account — the source of borrower identity.
// Immutable once observed.
type Manager struct {
	ID        string    `json:"id" db:"id"`
	Owner     string    `json:"owner" db:"owner"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Loan is one borrow from a margin pool. Status and RepaidAt are the only
// mutable fields, and only move forward.
type Loan struct {
	MarginManagerID string          `json:"margin_manager_id" db:"margin_manager_id"`
	MarginPoolID    string          `json:"margin_pool_id" db:"margin_pool_id"`
	LoanAmount      decimal.Decimal `json:"loan_amount" db:"loan_amount"`
	Status          LoanStatus      `json:"status" db:"status"`
	BorrowedAt      time.Time       `json:"borrowed_at" db:"borrowed_at"`
	RepaidAt        *time.Time      `json:"repaid_at,omitempty" db:"repaid_at"`
}

// Liquidation is an immutable, append-only record of a forced position close.
// DefaultAmount is the unrecovered portion of LiquidationAmount.
type Liquidation struct {
	MarginManagerID       string          `json:"margin_manager_id" db:"margin_manager_id"`
	MarginPoolID          string          `json:"margin_pool_id" db:"margin_pool_id"`
	LiquidationAmount     decimal.Decimal `json:"liquidation_amount" db:"liquidation_amount"`
	DefaultAmount         decimal.Decimal `json:"default_amount" db:"default_amount"`
	PoolRewardAmount      decimal.Decimal `json:"pool_reward_amount" db:"pool_reward_amount"`
	LiquidatorBaseReward  decimal.Decimal `json:"liquidator_base_reward" db:"liquidator_base_reward"`
	LiquidatorQuoteReward decimal.Decimal `json:"liquidator_quote_reward" db:"liquidator_quote_reward"`
	LiquidatedAt          time.Time       `json:"liquidated_at" db:"liquidated_at"`
}

// PositionSummary is an externally computed risk snapshot for one manager.
// Risk ratios are collateral-to-debt; the position becomes liquidatable when
// RiskRatio falls to LiquidationRiskRatio.
type PositionSummary struct {
	ManagerID            string          `json:"manager_id" db:"manager_id"`
	BaseAsset            string          `json:"base_asset" db:"base_asset"`
	QuoteAsset           string          `json:"quote_asset" db:"quote_asset"`
	BaseAmount           decimal.Decimal `json:"base_amount" db:"base_amount"`
	QuoteAmount          decimal.Decimal `json:"quote_amount" db:"quote_amount"`
	DebtAmount           decimal.Decimal `json:"debt_amount" db:"debt_amount"`
	RiskRatio            decimal.Decimal `json:"risk_ratio" db:"risk_ratio"`
	LiquidationRiskRatio decimal.Decimal `json:"liquidation_risk_ratio" db:"liquidation_risk_ratio"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// EventKind tags entries in a borrower's derived timeline.
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventBorrow      EventKind = "borrow"
	EventRepay       EventKind = "repay"
	EventLiquidation EventKind = "liquidation"
)

// Event is a synthetic timeline entry embedded in BorrowerData. Pool is empty
// and Amount zero for created events.
type Event struct {
	Kind      EventKind       `json:"kind"`
	Pool      string          `json:"pool,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// BorrowerData is the derived borrower-centric view. It is recomputed fully
// on every aggregation run — never incrementally mutated.
//
// Invariant: TotalOutstandingDebt = Σ max(0, OutstandingDebtByPool[p]).
// Per-pool buckets may go negative under the simplified liquidation
// arithmetic; negatives are clamped only at the total, not at the source.
type BorrowerData struct {
	ManagerID             string                     `json:"manager_id"`
	Owner                 string                     `json:"owner"`
	FirstSeen             time.Time                  `json:"first_seen"`
	LastActivity          time.Time                  `json:"last_activity"`
	PoolsUsed             []string                   `json:"pools_used"`
	OutstandingDebtByPool map[string]decimal.Decimal `json:"outstanding_debt_by_pool"`
	TotalOutstandingDebt  decimal.Decimal            `json:"total_outstanding_debt"`
	BorrowCount           int                        `json:"borrow_count"`
	RepayCount            int                        `json:"repay_count"`
	LiquidationCount      int                        `json:"liquidation_count"`
	DefaultSum            decimal.Decimal            `json:"default_sum"`
	RepayRatio            decimal.Decimal            `json:"repay_ratio"` // percent of borrowed volume repaid
	DeepbookPosition      *PositionSummary           `json:"deepbook_position,omitempty"`
	Events                []Event                    `json:"events"`
}

// DurationRecord is one realized loan duration from FIFO lot matching.
type DurationRecord struct {
	Pool   string          `json:"pool"`
	Days   decimal.Decimal `json:"days"`
	Amount decimal.Decimal `json:"amount"`
}

// PoolStats aggregates borrower activity per lending pool.
type PoolStats struct {
	PoolID           string          `json:"pool_id"`
	BorrowerCount    int             `json:"borrower_count"`
	OutstandingDebt  decimal.Decimal `json:"outstanding_debt"`
	BorrowCount      int             `json:"borrow_count"`
	LiquidationCount int             `json:"liquidation_count"`
	DefaultSum       decimal.Decimal `json:"default_sum"`
}

// ProtocolStats is the protocol-wide overview for the dashboard header.
type ProtocolStats struct {
	BorrowerCount        int             `json:"borrower_count"`
	ActiveBorrowerCount  int             `json:"active_borrower_count"` // outstanding debt > 0
	PoolCount            int             `json:"pool_count"`
	TotalOutstandingDebt decimal.Decimal `json:"total_outstanding_debt"`
	TotalBorrows         int             `json:"total_borrows"`
	TotalRepays          int             `json:"total_repays"`
	TotalLiquidations    int             `json:"total_liquidations"`
	TotalDefaulted       decimal.Decimal `json:"total_defaulted"`
}
