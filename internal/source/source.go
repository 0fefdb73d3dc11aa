// Package source fetches the raw protocol collections that feed the
// aggregator. The engine is agnostic to where the data comes from: an HTTP
// indexer or a static JSON snapshot file, selected by configuration.
package source

import (
	"context"

	"github.com/marginscope/analytics-engine/internal/model"
	"github.com/marginscope/analytics-engine/internal/pool"
)

// Source supplies the four input collections for one refresh.
type Source interface {
	FetchManagers(ctx context.Context) ([]model.Manager, error)
	FetchLoans(ctx context.Context) ([]model.Loan, error)
	FetchLiquidations(ctx context.Context) ([]model.Liquidation, error)
	FetchPositionSummaries(ctx context.Context) ([]model.PositionSummary, error)
}

// normalizeLoans scales raw on-chain loan amounts into human units for pools
// whose key carries asset decimals. Pool ids that don't parse are passed
// through untouched — their amounts are assumed to be pre-scaled.
func normalizeLoans(loans []model.Loan) []model.Loan {
	for i, l := range loans {
		p, err := pool.ParseKey(l.MarginPoolID)
		if err != nil {
			continue
		}
		loans[i].LoanAmount = pool.ScaleAmount(l.LoanAmount, p.Decimals)
	}
	return loans
}

func normalizeLiquidations(liqs []model.Liquidation) []model.Liquidation {
	for i, liq := range liqs {
		p, err := pool.ParseKey(liq.MarginPoolID)
		if err != nil {
			continue
		}
		liqs[i].LiquidationAmount = pool.ScaleAmount(liq.LiquidationAmount, p.Decimals)
		liqs[i].DefaultAmount = pool.ScaleAmount(liq.DefaultAmount, p.Decimals)
		liqs[i].PoolRewardAmount = pool.ScaleAmount(liq.PoolRewardAmount, p.Decimals)
		liqs[i].LiquidatorBaseReward = pool.ScaleAmount(liq.LiquidatorBaseReward, p.Decimals)
		liqs[i].LiquidatorQuoteReward = pool.ScaleAmount(liq.LiquidatorQuoteReward, p.Decimals)
	}
	return liqs
}
