// Package pool handles margin-pool key parsing and conversion of raw
// on-chain integer amounts into human units.
//
// Indexers report amounts as unscaled integers; the pool key carries the
// asset decimals needed to interpret them.
package pool

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// keyRegex matches: MPOOL-{SYMBOL}-{DECIMALS}
// Example: MPOOL-USDC-6
var keyRegex = regexp.MustCompile(`^MPOOL-([A-Z0-9]+)-(\d{1,2})$`)

var (
	ErrInvalidKey      = errors.New("pool: invalid pool key format")
	ErrInvalidDecimals = errors.New("pool: asset decimals out of range")
)

// MaxDecimals bounds asset decimals; on-chain assets use at most 18.
const MaxDecimals = 18

// Pool describes one lending market.
type Pool struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ParseKey parses and validates a margin-pool key.
// Format: MPOOL-{SYMBOL}-{DECIMALS}
func ParseKey(key string) (*Pool, error) {
	matches := keyRegex.FindStringSubmatch(key)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected MPOOL-{SYMBOL}-{DECIMALS})", ErrInvalidKey, key)
	}

	dec, err := strconv.Atoi(matches[2])
	if err != nil || dec > MaxDecimals {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDecimals, matches[2])
	}

	return &Pool{
		ID:       key,
		Symbol:   matches[1],
		Decimals: dec,
	}, nil
}

// ScaleAmount converts a raw on-chain integer amount into human units by
// shifting the decimal point left by the asset's decimals.
func ScaleAmount(raw decimal.Decimal, decimals int) decimal.Decimal {
	return raw.Shift(-int32(decimals))
}
