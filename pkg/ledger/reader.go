// Package ledger reads account balances and allowances from the chain.
// Reads are point-in-time: the two balance reads are not atomic with each
// other, which the planner tolerates by re-deriving everything from one
// read pair taken immediately before planning.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sigweihq/yieldpay/pkg/constants"
	"github.com/sigweihq/yieldpay/pkg/encoders"
	"github.com/sigweihq/yieldpay/pkg/types"
)

// Reader provides the balance and allowance reads the payment core needs.
type Reader interface {
	// Balances returns the account's liquid and yield-bearing balances
	// in minor units.
	Balances(ctx context.Context, account common.Address) (types.Balances, error)

	// Allowance returns the spending allowance the owner has granted to
	// the spender on the liquid token.
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
}

// ChainReader implements Reader against JSON-RPC endpoints with failover.
type ChainReader struct {
	network   string
	endpoints []string
	usdc      common.Address
	ausdc     common.Address
	logger    *slog.Logger
}

var _ Reader = (*ChainReader)(nil)

// NewChainReader creates a reader for the default Base Sepolia contracts.
// Endpoints default to the official RPC endpoint when none are given.
func NewChainReader(endpoints []string, logger *slog.Logger) *ChainReader {
	if len(endpoints) == 0 {
		endpoints = constants.OfficialRPCEndpoints[constants.NetworkBaseSepolia]
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainReader{
		network:   constants.NetworkBaseSepolia,
		endpoints: endpoints,
		usdc:      common.HexToAddress(constants.USDCAddressBaseSepolia),
		ausdc:     common.HexToAddress(constants.AUSDCAddressBaseSepolia),
		logger:    logger,
	}
}

// Balances implements Reader. Any read error aborts the payment rather
// than being treated as a zero balance.
func (r *ChainReader) Balances(ctx context.Context, account common.Address) (types.Balances, error) {
	balanceData, err := encoders.BalanceOf(account)
	if err != nil {
		return types.Balances{}, fmt.Errorf("%w: %w", types.ErrLedgerRead, err)
	}

	liquid, err := r.callContract(ctx, r.usdc, balanceData)
	if err != nil {
		return types.Balances{}, fmt.Errorf("%w: liquid balance: %w", types.ErrLedgerRead, err)
	}

	yieldBearing, err := r.callContract(ctx, r.ausdc, balanceData)
	if err != nil {
		return types.Balances{}, fmt.Errorf("%w: yield balance: %w", types.ErrLedgerRead, err)
	}

	return types.Balances{Liquid: liquid, YieldBearing: yieldBearing}, nil
}

// Allowance implements Reader.
func (r *ChainReader) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	allowanceData, err := encoders.Allowance(owner, spender)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrLedgerRead, err)
	}

	allowance, err := r.callContract(ctx, r.usdc, allowanceData)
	if err != nil {
		return nil, fmt.Errorf("%w: allowance: %w", types.ErrLedgerRead, err)
	}

	return allowance, nil
}

// callContract makes an eth_call with RPC failover, trying endpoints in
// order with progressive delay between attempts.
func (r *ChainReader) callContract(ctx context.Context, contract common.Address, data []byte) (*big.Int, error) {
	if len(r.endpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints available for network %s", r.network)
	}

	for i, endpoint := range r.endpoints {
		if i > 0 {
			delay := time.Duration(i*constants.DelayBetweenRPCCalls) * time.Millisecond
			time.Sleep(delay)
		}

		client, err := ethclient.Dial(endpoint)
		if err != nil {
			r.logger.Warn("failed to connect to RPC", "endpoint", endpoint, "error", err)
			continue
		}

		msg := map[string]interface{}{
			"to":   contract.Hex(),
			"data": hexutil.Encode(data),
		}

		callCtx, cancel := context.WithTimeout(ctx, constants.CallContractTimeout)
		var result string
		err = client.Client().CallContext(callCtx, &result, "eth_call", msg, "latest")
		client.Close()
		cancel()

		if err != nil {
			r.logger.Warn("contract call failed", "endpoint", endpoint, "error", err)
			continue
		}

		return new(big.Int).SetBytes(common.FromHex(result)), nil
	}

	return nil, fmt.Errorf("all RPC endpoints failed for network %s", r.network)
}
