package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/model"
)

// ComputePoolStats rolls borrower activity up per lending pool. Outstanding
// debt sums only positive per-borrower buckets, matching the clamp rule used
// for borrower totals. Liquidations referencing managers outside the borrower
// set are skipped, consistent with Aggregate. Results are ordered by pool id.
func ComputePoolStats(borrowers []model.BorrowerData, liquidations []model.Liquidation) []model.PoolStats {
	stats := make(map[string]*model.PoolStats)
	pool := func(id string) *model.PoolStats {
		ps, ok := stats[id]
		if !ok {
			ps = &model.PoolStats{PoolID: id}
			stats[id] = ps
		}
		return ps
	}

	known := make(map[string]bool, len(borrowers))
	for _, b := range borrowers {
		known[b.ManagerID] = true

		for _, p := range b.PoolsUsed {
			pool(p).BorrowerCount++
		}
		for p, bucket := range b.OutstandingDebtByPool {
			if bucket.IsPositive() {
				ps := pool(p)
				ps.OutstandingDebt = ps.OutstandingDebt.Add(bucket)
			}
		}
		for _, ev := range b.Events {
			switch ev.Kind {
			case model.EventBorrow:
				pool(ev.Pool).BorrowCount++
			case model.EventLiquidation:
				pool(ev.Pool).LiquidationCount++
			}
		}
	}

	for _, liq := range liquidations {
		if !known[liq.MarginManagerID] {
			continue
		}
		ps := pool(liq.MarginPoolID)
		ps.DefaultSum = ps.DefaultSum.Add(liq.DefaultAmount)
	}

	out := make([]model.PoolStats, 0, len(stats))
	for _, ps := range stats {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PoolID < out[j].PoolID })
	return out
}

// ComputeProtocolStats produces the protocol-wide overview.
func ComputeProtocolStats(borrowers []model.BorrowerData) model.ProtocolStats {
	stats := model.ProtocolStats{
		BorrowerCount:        len(borrowers),
		TotalOutstandingDebt: decimal.Zero,
		TotalDefaulted:       decimal.Zero,
	}

	pools := make(map[string]bool)
	for _, b := range borrowers {
		if b.TotalOutstandingDebt.IsPositive() {
			stats.ActiveBorrowerCount++
		}
		stats.TotalOutstandingDebt = stats.TotalOutstandingDebt.Add(b.TotalOutstandingDebt)
		stats.TotalBorrows += b.BorrowCount
		stats.TotalRepays += b.RepayCount
		stats.TotalLiquidations += b.LiquidationCount
		stats.TotalDefaulted = stats.TotalDefaulted.Add(b.DefaultSum)
		for _, p := range b.PoolsUsed {
			pools[p] = true
		}
	}
	stats.PoolCount = len(pools)
	return stats
}
