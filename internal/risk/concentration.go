package risk

import (
	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/model"
)

// ConcentrationFlag marks a borrower whose outstanding debt leans too hard
// on a single pool.
type ConcentrationFlag struct {
	ManagerID string          `json:"manager_id"`
	Owner     string          `json:"owner"`
	PoolID    string          `json:"pool_id"`
	Share     decimal.Decimal `json:"share"` // pool debt / total debt, 0..1
}

// FlagConcentration scans borrowers for pools carrying more than maxShare of
// the borrower's total outstanding debt. Borrowers with no outstanding debt
// are skipped; negative buckets count as zero, matching the total's clamp
// rule. Flag order follows the borrower input order, then pool first-use
// order.
func FlagConcentration(borrowers []model.BorrowerData, maxShare decimal.Decimal) []ConcentrationFlag {
	var flags []ConcentrationFlag

	for _, b := range borrowers {
		if !b.TotalOutstandingDebt.IsPositive() {
			continue
		}
		for _, p := range b.PoolsUsed {
			bucket := b.OutstandingDebtByPool[p]
			if !bucket.IsPositive() {
				continue
			}
			share := bucket.Div(b.TotalOutstandingDebt).Round(RatioScale)
			if share.GreaterThan(maxShare) {
				flags = append(flags, ConcentrationFlag{
					ManagerID: b.ManagerID,
					Owner:     b.Owner,
					PoolID:    p,
					Share:     share,
				})
			}
		}
	}
	return flags
}
