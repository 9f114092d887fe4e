// Package planner decides whether a currency-representation conversion
// must happen before a transfer can complete. The same decision logic
// serves the inline payment path and the periodic rebalancing sweep.
package planner

import (
	"fmt"
	"math/big"

	"github.com/sigweihq/yieldpay/pkg/types"
)

// Plan derives the conversion plan for one payment. Solvency is checked
// across both representations: a sender is never blocked because funds sit
// in the "wrong" form. By construction the shortfall never exceeds the
// non-target balance once the total check has passed.
func Plan(balances types.Balances, requested *big.Int, recipientWantsYield bool) (*types.ConversionPlan, error) {
	if requested == nil || requested.Sign() <= 0 {
		return nil, fmt.Errorf("requested amount must be positive")
	}

	total := balances.Total()
	if total.Cmp(requested) < 0 {
		return nil, fmt.Errorf("%w: have %s total, need %s",
			types.ErrInsufficientBalance, types.FormatAmount(total), types.FormatAmount(requested))
	}

	target := types.RepresentationLiquid
	if recipientWantsYield {
		target = types.RepresentationYield
	}

	targetBalance := balances.Of(target)
	shortfall := big.NewInt(0)
	if targetBalance.Cmp(requested) < 0 {
		shortfall = new(big.Int).Sub(requested, targetBalance)
	}

	return &types.ConversionPlan{
		Target:    target,
		Shortfall: shortfall,
	}, nil
}
