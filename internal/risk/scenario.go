// Package risk computes what-if projections over externally supplied
// position risk summaries: linear price-change scenarios, the price move at
// which a position crosses its liquidation threshold, and per-pool debt
// concentration flags.
//
// All monetary values use shopspring/decimal — never float64 for money.
package risk

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/model"
)

var (
	// ErrNoDebt is returned when a position has no debt; risk ratios are
	// undefined and no price move can liquidate it.
	ErrNoDebt = errors.New("risk: position has no debt")

	// ErrNoBaseCollateral is returned when a position holds no base asset,
	// so its risk ratio is insensitive to price changes.
	ErrNoBaseCollateral = errors.New("risk: position has no base collateral")

	// RatioScale is the number of decimal places for projected ratios.
	RatioScale int32 = 4
)

var hundred = decimal.NewFromInt(100)

// ProjectRiskRatio returns the risk ratio a position would have after the
// base asset's price moves by priceChangePct percent. The base collateral
// leg scales linearly with price; the quote leg and the debt do not.
//
//	projected = (base × (1 + pct/100) + quote) / debt
func ProjectRiskRatio(pos model.PositionSummary, priceChangePct decimal.Decimal) (decimal.Decimal, error) {
	if !pos.DebtAmount.IsPositive() {
		return decimal.Zero, ErrNoDebt
	}

	factor := decimal.NewFromInt(1).Add(priceChangePct.Div(hundred))
	collateral := pos.BaseAmount.Mul(factor).Add(pos.QuoteAmount)
	return collateral.Div(pos.DebtAmount).Round(RatioScale), nil
}

// LiquidationPriceDrop returns the base-asset price change, in percent, at
// which the projected risk ratio reaches the position's liquidation
// threshold. The result is negative for positions above the threshold (a
// drop is required) and clamped to -100, the price going to zero.
//
// Solving (base × (1 + δ) + quote) / debt = liquidationRatio for δ:
//
//	δ = (liquidationRatio × debt − quote − base) / base
func LiquidationPriceDrop(pos model.PositionSummary) (decimal.Decimal, error) {
	if !pos.DebtAmount.IsPositive() {
		return decimal.Zero, ErrNoDebt
	}
	if !pos.BaseAmount.IsPositive() {
		return decimal.Zero, ErrNoBaseCollateral
	}

	needed := pos.LiquidationRiskRatio.Mul(pos.DebtAmount).
		Sub(pos.QuoteAmount).
		Sub(pos.BaseAmount)
	pct := needed.Div(pos.BaseAmount).Mul(hundred).Round(RatioScale)

	floor := hundred.Neg()
	if pct.LessThan(floor) {
		return floor, nil
	}
	return pct, nil
}
