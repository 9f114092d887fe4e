// Package encoders builds calldata for the token and lending-protocol
// operations the payment core submits through the relay. Every function is
// pure and deterministic: the same arguments always produce the same bytes.
package encoders

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABI = `[
	{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const aavePoolABI = `[
	{"name":"supply","type":"function","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},{"name":"onBehalfOf","type":"address"},{"name":"referralCode","type":"uint16"}],"outputs":[]},
	{"name":"withdraw","type":"function","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},{"name":"to","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

func pack(abiJSON, method string, args ...interface{}) ([]byte, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	return data, nil
}

// Transfer encodes an ERC-20 transfer of amount minor units to the recipient.
func Transfer(to common.Address, amount *big.Int) ([]byte, error) {
	return pack(erc20ABI, "transfer", to, amount)
}

// Approve encodes an ERC-20 allowance grant to the spender.
func Approve(spender common.Address, amount *big.Int) ([]byte, error) {
	return pack(erc20ABI, "approve", spender, amount)
}

// BalanceOf encodes an ERC-20 balance read for the account.
func BalanceOf(account common.Address) ([]byte, error) {
	return pack(erc20ABI, "balanceOf", account)
}

// Allowance encodes an ERC-20 allowance read for the owner/spender pair.
func Allowance(owner, spender common.Address) ([]byte, error) {
	return pack(erc20ABI, "allowance", owner, spender)
}

// Supply encodes an Aave v3 pool deposit of the asset on behalf of the
// account. The referral code is always zero.
func Supply(asset common.Address, amount *big.Int, onBehalfOf common.Address) ([]byte, error) {
	return pack(aavePoolABI, "supply", asset, amount, onBehalfOf, uint16(0))
}

// Withdraw encodes an Aave v3 pool withdrawal of the asset back to the
// account.
func Withdraw(asset common.Address, amount *big.Int, to common.Address) ([]byte, error) {
	return pack(aavePoolABI, "withdraw", asset, amount, to)
}
