package planner

import (
	"math/big"
	"testing"

	"github.com/sigweihq/yieldpay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usdc(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name          string
		liquid        *big.Int
		yieldBearing  *big.Int
		requested     *big.Int
		wantsYield    bool
		wantTarget    types.Representation
		wantShortfall *big.Int
		wantErr       error
	}{
		{
			name:          "liquid only, recipient wants yield, full conversion",
			liquid:        usdc(100),
			yieldBearing:  usdc(0),
			requested:     usdc(40),
			wantsYield:    true,
			wantTarget:    types.RepresentationYield,
			wantShortfall: usdc(40),
		},
		{
			name:          "split balance, recipient wants liquid, partial conversion",
			liquid:        usdc(30),
			yieldBearing:  usdc(50),
			requested:     usdc(40),
			wantsYield:    false,
			wantTarget:    types.RepresentationLiquid,
			wantShortfall: usdc(10),
		},
		{
			name:          "liquid covers request, no conversion",
			liquid:        usdc(100),
			yieldBearing:  usdc(0),
			requested:     usdc(40),
			wantsYield:    false,
			wantTarget:    types.RepresentationLiquid,
			wantShortfall: usdc(0),
		},
		{
			name:          "exactly equal balance takes the no-conversion branch",
			liquid:        usdc(40),
			yieldBearing:  usdc(0),
			requested:     usdc(40),
			wantsYield:    false,
			wantTarget:    types.RepresentationLiquid,
			wantShortfall: usdc(0),
		},
		{
			name:          "exact total across both representations is solvent",
			liquid:        usdc(10),
			yieldBearing:  usdc(30),
			requested:     usdc(40),
			wantsYield:    true,
			wantTarget:    types.RepresentationYield,
			wantShortfall: usdc(10),
		},
		{
			name:         "insufficient across both representations",
			liquid:       usdc(5),
			yieldBearing: usdc(15),
			requested:    usdc(40),
			wantsYield:   false,
			wantErr:      types.ErrInsufficientBalance,
		},
		{
			name:         "zero balance",
			liquid:       usdc(0),
			yieldBearing: usdc(0),
			requested:    usdc(1),
			wantsYield:   true,
			wantErr:      types.ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances := types.Balances{Liquid: tt.liquid, YieldBearing: tt.yieldBearing}
			plan, err := Plan(balances, tt.requested, tt.wantsYield)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, plan.Target)
			assert.Zero(t, plan.Shortfall.Cmp(tt.wantShortfall))
		})
	}
}

func TestPlanShortfallNeverExceedsNonTargetBalance(t *testing.T) {
	cases := []struct {
		liquid, yieldBearing, requested int64
		wantsYield                      bool
	}{
		{100, 0, 40, true},
		{30, 50, 40, false},
		{10, 30, 40, true},
		{1, 99, 100, false},
		{50, 50, 100, true},
	}

	for _, c := range cases {
		balances := types.Balances{Liquid: usdc(c.liquid), YieldBearing: usdc(c.yieldBearing)}
		plan, err := Plan(balances, usdc(c.requested), c.wantsYield)
		require.NoError(t, err)

		nonTarget := balances.Liquid
		if plan.Target == types.RepresentationLiquid {
			nonTarget = balances.YieldBearing
		}
		assert.LessOrEqual(t, plan.Shortfall.Cmp(nonTarget), 0,
			"shortfall %s exceeds non-target balance %s", plan.Shortfall, nonTarget)
		assert.GreaterOrEqual(t, plan.Shortfall.Sign(), 0, "shortfall must never be negative")
	}
}

func TestPlanRejectsNonPositiveAmount(t *testing.T) {
	balances := types.Balances{Liquid: usdc(100), YieldBearing: usdc(0)}

	_, err := Plan(balances, big.NewInt(0), false)
	assert.Error(t, err)

	_, err = Plan(balances, big.NewInt(-5), false)
	assert.Error(t, err)

	_, err = Plan(balances, nil, false)
	assert.Error(t, err)
}
