// Package analytics derives borrower-centric views from raw margin-protocol
// records: event-sourced position aggregation, FIFO loan-duration matching,
// and the search/sort helpers the dashboard endpoints are built on.
//
// Every function in this package is a pure, synchronous transformation over
// its arguments. Nothing is cached between calls and no function returns an
// error: unknown references are skipped, not reported.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/model"
)

var hundred = decimal.NewFromInt(100)

// borrowerAcc carries the running totals for one manager during a single
// aggregation pass.
type borrowerAcc struct {
	data          *model.BorrowerData
	totalBorrowed decimal.Decimal
	totalRepaid   decimal.Decimal
}

// Aggregate folds managers, loans, and liquidations into one BorrowerData per
// manager, in manager input order. Loans and liquidations referencing a
// manager outside the input set are skipped silently — they may belong to a
// fetch window this snapshot does not cover. positionSummaries is optional;
// when present, the summary matching each manager id is attached.
//
// The result is rebuilt from scratch on every call: identical inputs produce
// structurally equal output.
func Aggregate(
	managers []model.Manager,
	loans []model.Loan,
	liquidations []model.Liquidation,
	positionSummaries []model.PositionSummary,
) []model.BorrowerData {
	accs := make(map[string]*borrowerAcc, len(managers))
	order := make([]string, 0, len(managers))

	// Seed from managers: identity plus a synthetic created event.
	for _, m := range managers {
		if _, ok := accs[m.ID]; ok {
			continue
		}
		accs[m.ID] = &borrowerAcc{
			data: &model.BorrowerData{
				ManagerID:             m.ID,
				Owner:                 m.Owner,
				FirstSeen:             m.CreatedAt,
				LastActivity:          m.CreatedAt,
				OutstandingDebtByPool: make(map[string]decimal.Decimal),
				Events: []model.Event{{
					Kind:      model.EventCreated,
					Timestamp: m.CreatedAt,
				}},
			},
		}
		order = append(order, m.ID)
	}

	for _, l := range loans {
		acc, ok := accs[l.MarginManagerID]
		if !ok {
			continue
		}
		b := acc.data

		touch(b, l.BorrowedAt)
		if l.RepaidAt != nil {
			touch(b, *l.RepaidAt)
		}
		addPool(b, l.MarginPoolID)

		b.OutstandingDebtByPool[l.MarginPoolID] =
			b.OutstandingDebtByPool[l.MarginPoolID].Add(l.LoanAmount)
		b.BorrowCount++
		acc.totalBorrowed = acc.totalBorrowed.Add(l.LoanAmount)
		b.Events = append(b.Events, model.Event{
			Kind:      model.EventBorrow,
			Pool:      l.MarginPoolID,
			Amount:    l.LoanAmount,
			Timestamp: l.BorrowedAt,
		})

		if l.Status == model.LoanRepaid {
			b.OutstandingDebtByPool[l.MarginPoolID] =
				b.OutstandingDebtByPool[l.MarginPoolID].Sub(l.LoanAmount)
			b.RepayCount++
			acc.totalRepaid = acc.totalRepaid.Add(l.LoanAmount)

			repaidAt := l.BorrowedAt
			if l.RepaidAt != nil {
				repaidAt = *l.RepaidAt
			}
			b.Events = append(b.Events, model.Event{
				Kind:      model.EventRepay,
				Pool:      l.MarginPoolID,
				Amount:    l.LoanAmount,
				Timestamp: repaidAt,
			})
		}
	}

	for _, liq := range liquidations {
		acc, ok := accs[liq.MarginManagerID]
		if !ok {
			continue
		}
		b := acc.data

		touch(b, liq.LiquidatedAt)
		addPool(b, liq.MarginPoolID)

		// Simplified accounting: a liquidation repays exactly the
		// non-defaulted portion. The bucket may go negative here.
		repaid := liq.LiquidationAmount.Sub(liq.DefaultAmount)
		b.OutstandingDebtByPool[liq.MarginPoolID] =
			b.OutstandingDebtByPool[liq.MarginPoolID].Sub(repaid)
		b.LiquidationCount++
		b.DefaultSum = b.DefaultSum.Add(liq.DefaultAmount)
		b.Events = append(b.Events, model.Event{
			Kind:      model.EventLiquidation,
			Pool:      liq.MarginPoolID,
			Amount:    liq.LiquidationAmount,
			Timestamp: liq.LiquidatedAt,
		})
	}

	for _, ps := range positionSummaries {
		if acc, ok := accs[ps.ManagerID]; ok {
			summary := ps
			acc.data.DeepbookPosition = &summary
		}
	}

	out := make([]model.BorrowerData, 0, len(order))
	for _, id := range order {
		acc := accs[id]
		b := acc.data

		// Negative buckets stay visible per pool; only the total clamps.
		total := decimal.Zero
		for _, bucket := range b.OutstandingDebtByPool {
			if bucket.IsPositive() {
				total = total.Add(bucket)
			}
		}
		b.TotalOutstandingDebt = total

		if acc.totalBorrowed.IsPositive() {
			b.RepayRatio = acc.totalRepaid.Div(acc.totalBorrowed).Mul(hundred).Round(2)
		}

		sort.SliceStable(b.Events, func(i, j int) bool {
			return b.Events[i].Timestamp.Before(b.Events[j].Timestamp)
		})

		out = append(out, *b)
	}
	return out
}

// touch advances LastActivity, never rewinds it.
func touch(b *model.BorrowerData, ts time.Time) {
	if ts.After(b.LastActivity) {
		b.LastActivity = ts
	}
}

// addPool appends a pool id to PoolsUsed if novel, preserving first-use order.
func addPool(b *model.BorrowerData, poolID string) {
	for _, p := range b.PoolsUsed {
		if p == poolID {
			return
		}
	}
	b.PoolsUsed = append(b.PoolsUsed, poolID)
}
