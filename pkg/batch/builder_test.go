package batch

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sigweihq/yieldpay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testUSDC  = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	testAUSDC = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	testPool  = common.HexToAddress("0x0000000000000000000000000000000000000a03")

	sender    = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	recipient = common.HexToAddress("0x0000000000000000000000000000000000000b02")
)

func usdc(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

func selector(data []byte) string {
	return hex.EncodeToString(data[:4])
}

const (
	selTransfer = "a9059cbb"
	selApprove  = "095ea7b3"
	selSupply   = "617ba037"
	selWithdraw = "69328dec"
)

func testBuilder() *Builder {
	return NewBuilderWithContracts(testUSDC, testAUSDC, testPool)
}

func TestBuildPaymentApproveSupplyTransfer(t *testing.T) {
	// Sender holds 100 liquid, recipient wants yield, 40 requested:
	// the whole 40 must be deposited first, and the zero allowance
	// forces an approval.
	b := testBuilder()
	plan := &types.ConversionPlan{Target: types.RepresentationYield, Shortfall: usdc(40)}

	calls, err := b.BuildPayment(plan, usdc(40), sender, recipient, big.NewInt(0))
	require.NoError(t, err)
	require.Len(t, calls, 3)

	assert.Equal(t, testUSDC, calls[0].To)
	assert.Equal(t, selApprove, selector(calls[0].Data))

	assert.Equal(t, testPool, calls[1].To)
	assert.Equal(t, selSupply, selector(calls[1].Data))

	assert.Equal(t, testAUSDC, calls[2].To)
	assert.Equal(t, selTransfer, selector(calls[2].Data))
}

func TestBuildPaymentWithdrawTransfer(t *testing.T) {
	// Sender holds 30 liquid / 50 yield, recipient wants liquid, 40
	// requested: withdraw the 10 shortfall, no approval call.
	b := testBuilder()
	plan := &types.ConversionPlan{Target: types.RepresentationLiquid, Shortfall: usdc(10)}

	calls, err := b.BuildPayment(plan, usdc(40), sender, recipient, nil)
	require.NoError(t, err)
	require.Len(t, calls, 2)

	assert.Equal(t, testPool, calls[0].To)
	assert.Equal(t, selWithdraw, selector(calls[0].Data))

	assert.Equal(t, testUSDC, calls[1].To)
	assert.Equal(t, selTransfer, selector(calls[1].Data))
}

func TestBuildPaymentTransferOnly(t *testing.T) {
	b := testBuilder()
	plan := &types.ConversionPlan{Target: types.RepresentationLiquid, Shortfall: big.NewInt(0)}

	calls, err := b.BuildPayment(plan, usdc(40), sender, recipient, nil)
	require.NoError(t, err)
	require.Len(t, calls, 1)

	assert.Equal(t, testUSDC, calls[0].To)
	assert.Equal(t, selTransfer, selector(calls[0].Data))
}

func TestBuildPaymentSkipsApprovalWhenAllowanceSuffices(t *testing.T) {
	b := testBuilder()
	plan := &types.ConversionPlan{Target: types.RepresentationYield, Shortfall: usdc(40)}

	calls, err := b.BuildPayment(plan, usdc(40), sender, recipient, usdc(40))
	require.NoError(t, err)
	require.Len(t, calls, 2)

	assert.Equal(t, selSupply, selector(calls[0].Data))
	assert.Equal(t, selTransfer, selector(calls[1].Data))
}

func TestBuildPaymentOrderingInvariant(t *testing.T) {
	// Whatever the inputs, a conversion always precedes the transfer
	// and an approval always precedes the conversion.
	b := testBuilder()
	plans := []*types.ConversionPlan{
		{Target: types.RepresentationYield, Shortfall: usdc(1)},
		{Target: types.RepresentationYield, Shortfall: usdc(99)},
		{Target: types.RepresentationLiquid, Shortfall: usdc(25)},
	}

	for _, plan := range plans {
		calls, err := b.BuildPayment(plan, usdc(100), sender, recipient, big.NewInt(0))
		require.NoError(t, err)

		positions := map[string]int{}
		for i, call := range calls {
			positions[selector(call.Data)] = i
		}

		transferPos, ok := positions[selTransfer]
		require.True(t, ok, "transfer call must always be present")
		assert.Equal(t, len(calls)-1, transferPos, "transfer must be last")

		if pos, ok := positions[selSupply]; ok {
			assert.Less(t, pos, transferPos)
			if approvePos, ok := positions[selApprove]; ok {
				assert.Less(t, approvePos, pos)
			}
		}
		if pos, ok := positions[selWithdraw]; ok {
			assert.Less(t, pos, transferPos)
		}
	}
}

func TestBuildRebalance(t *testing.T) {
	tests := []struct {
		name          string
		liquid        *big.Int
		yieldBearing  *big.Int
		wantsYield    bool
		allowance     *big.Int
		wantSelectors []string
	}{
		{
			name:          "liquid idle, wants yield, needs approval",
			liquid:        usdc(25),
			yieldBearing:  usdc(0),
			wantsYield:    true,
			allowance:     big.NewInt(0),
			wantSelectors: []string{selApprove, selSupply},
		},
		{
			name:          "liquid idle, wants yield, allowance covers",
			liquid:        usdc(25),
			yieldBearing:  usdc(10),
			wantsYield:    true,
			allowance:     usdc(25),
			wantSelectors: []string{selSupply},
		},
		{
			name:          "yield idle, wants liquid",
			liquid:        usdc(0),
			yieldBearing:  usdc(12),
			wantsYield:    false,
			wantSelectors: []string{selWithdraw},
		},
		{
			name:         "already converged toward yield",
			liquid:       usdc(0),
			yieldBearing: usdc(50),
			wantsYield:   true,
		},
		{
			name:         "already converged toward liquid",
			liquid:       usdc(50),
			yieldBearing: usdc(0),
			wantsYield:   false,
		},
	}

	b := testBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances := types.Balances{Liquid: tt.liquid, YieldBearing: tt.yieldBearing}
			calls, err := b.BuildRebalance(balances, tt.wantsYield, sender, tt.allowance)
			require.NoError(t, err)
			require.Len(t, calls, len(tt.wantSelectors))

			for i, want := range tt.wantSelectors {
				assert.Equal(t, want, selector(calls[i].Data))
			}
		})
	}
}
