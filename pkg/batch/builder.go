// Package batch turns conversion plans into ordered call batches. The
// order is fixed (approval, then conversion, then transfer) because each
// step's preconditions depend on the previous one completing within the
// same atomic batch.
package batch

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sigweihq/yieldpay/pkg/constants"
	"github.com/sigweihq/yieldpay/pkg/encoders"
	"github.com/sigweihq/yieldpay/pkg/types"
)

// Builder assembles call batches for a fixed token pair and lending pool.
type Builder struct {
	usdc     common.Address
	ausdc    common.Address
	aavePool common.Address
}

// NewBuilder creates a builder for the default Base Sepolia contracts.
func NewBuilder() *Builder {
	return &Builder{
		usdc:     common.HexToAddress(constants.USDCAddressBaseSepolia),
		ausdc:    common.HexToAddress(constants.AUSDCAddressBaseSepolia),
		aavePool: common.HexToAddress(constants.AavePoolBaseSepolia),
	}
}

// NewBuilderWithContracts creates a builder for explicit contract
// addresses. Intended for tests and non-default deployments.
func NewBuilderWithContracts(usdc, ausdc, aavePool common.Address) *Builder {
	return &Builder{usdc: usdc, ausdc: ausdc, aavePool: aavePool}
}

// Pool returns the lending pool address, the spender of conversion
// approvals.
func (b *Builder) Pool() common.Address {
	return b.aavePool
}

// TokenFor returns the token contract holding the given representation.
func (b *Builder) TokenFor(r types.Representation) common.Address {
	if r == types.RepresentationYield {
		return b.ausdc
	}
	return b.usdc
}

// BuildPayment builds the batch for one payment: an approval call when
// converting into the yield representation and the standing allowance is
// below the shortfall, a deposit or withdrawal when a conversion is
// needed, and always a final transfer of the requested amount in the
// representation the recipient prefers.
func (b *Builder) BuildPayment(
	plan *types.ConversionPlan,
	requested *big.Int,
	sender, recipient common.Address,
	allowance *big.Int,
) (types.CallBatch, error) {
	var calls types.CallBatch

	if plan.NeedsConversion() {
		conversion, err := b.conversionCalls(plan.Target, plan.Shortfall, sender, allowance)
		if err != nil {
			return nil, err
		}
		calls = append(calls, conversion...)
	}

	transferData, err := encoders.Transfer(recipient, requested)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer: %w", err)
	}
	calls = append(calls, types.Call{
		To:   b.TokenFor(plan.Target),
		Data: transferData,
	})

	return calls, nil
}

// BuildRebalance builds the sweep batch converting an account's entire
// idle balance toward its preferred representation. Returns an empty batch
// when the account is already converged.
func (b *Builder) BuildRebalance(
	balances types.Balances,
	wantsYield bool,
	account common.Address,
	allowance *big.Int,
) (types.CallBatch, error) {
	if wantsYield {
		if balances.Liquid.Sign() == 0 {
			return nil, nil
		}
		return b.conversionCalls(types.RepresentationYield, balances.Liquid, account, allowance)
	}

	if balances.YieldBearing.Sign() == 0 {
		return nil, nil
	}
	return b.conversionCalls(types.RepresentationLiquid, balances.YieldBearing, account, allowance)
}

// conversionCalls moves amount from the non-target representation into the
// target one. Converting into yield deposits into the lending pool and may
// need a preceding allowance grant; converting into liquid withdraws.
// Approvals are for exactly the converted amount, never unlimited.
func (b *Builder) conversionCalls(
	target types.Representation,
	amount *big.Int,
	account common.Address,
	allowance *big.Int,
) (types.CallBatch, error) {
	var calls types.CallBatch

	if target == types.RepresentationYield {
		if allowance == nil || allowance.Cmp(amount) < 0 {
			approveData, err := encoders.Approve(b.aavePool, amount)
			if err != nil {
				return nil, fmt.Errorf("failed to encode approve: %w", err)
			}
			calls = append(calls, types.Call{To: b.usdc, Data: approveData})
		}

		supplyData, err := encoders.Supply(b.usdc, amount, account)
		if err != nil {
			return nil, fmt.Errorf("failed to encode supply: %w", err)
		}
		calls = append(calls, types.Call{To: b.aavePool, Data: supplyData, Value: big.NewInt(0)})
		return calls, nil
	}

	withdrawData, err := encoders.Withdraw(b.usdc, amount, account)
	if err != nil {
		return nil, fmt.Errorf("failed to encode withdraw: %w", err)
	}
	calls = append(calls, types.Call{To: b.aavePool, Data: withdrawData, Value: big.NewInt(0)})
	return calls, nil
}
