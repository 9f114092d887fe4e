package types

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sigweihq/yieldpay/pkg/constants"
)

// Representation identifies which form of the stable balance an amount is
// held in: directly spendable USDC or interest-accruing aUSDC.
type Representation int

const (
	RepresentationLiquid Representation = iota
	RepresentationYield
)

func (r Representation) String() string {
	if r == RepresentationYield {
		return "yield"
	}
	return "liquid"
}

// Balances is one account's balance in both representations, in minor
// units (6 decimals). Read live from the ledger, never stored.
type Balances struct {
	Liquid       *big.Int
	YieldBearing *big.Int
}

// Total returns the combined balance across both representations.
func (b Balances) Total() *big.Int {
	return new(big.Int).Add(b.Liquid, b.YieldBearing)
}

// Of returns the balance held in the given representation.
func (b Balances) Of(r Representation) *big.Int {
	if r == RepresentationYield {
		return b.YieldBearing
	}
	return b.Liquid
}

// PaymentIntent describes one requested payment. It exists only for the
// duration of the request and is never persisted.
type PaymentIntent struct {
	Sender              common.Address
	Recipient           common.Address
	Amount              *big.Int // minor units
	RecipientWantsYield bool
	Message             string
}

// ConversionPlan is the planner's decision: which representation the
// transfer must be made in, and how much must be converted into it first.
// Shortfall is zero when the sender already holds enough of the target.
type ConversionPlan struct {
	Target    Representation
	Shortfall *big.Int
}

// NeedsConversion reports whether a conversion call must precede the
// transfer.
func (p *ConversionPlan) NeedsConversion() bool {
	return p.Shortfall.Sign() > 0
}

// Call is one abstract on-chain operation. Ordering within a batch is
// semantically significant and preserved end-to-end.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int // nil when no native value is attached
}

// CallBatch is an ordered sequence of calls executed atomically by the
// relay under a single signature. Immutable once built.
type CallBatch []Call

// TransactionRecord is persisted once per attempted payment. A record
// whose hash could not be resolved in time carries the pending sentinel
// instead of a settlement hash.
type TransactionRecord struct {
	TransactionHash string
	FromUserID      uuid.UUID
	ToUserID        uuid.UUID
	Amount          string // decimal string, e.g. "12.500000"
	Message         string
	CreatedAt       time.Time
}

// PendingHash builds the sentinel hash for a batch that has not settled yet.
func PendingHash(batchID string) string {
	return constants.PendingHashPrefix + batchID
}

// IsPendingHash reports whether a stored hash is the pending sentinel.
func IsPendingHash(hash string) bool {
	return strings.HasPrefix(hash, constants.PendingHashPrefix)
}

// Profile is one registered user's payment identity.
type Profile struct {
	UserID               uuid.UUID
	Username             string
	DisplayName          string
	SmartAccountAddress  string
	ReceivedWelcomeBonus bool
	IsEarningYield       bool
}

// HasWallet reports whether the profile has an initialized smart account.
func (p *Profile) HasWallet() bool {
	return p != nil && p.SmartAccountAddress != ""
}

// Receipt is one execution receipt returned by the relay status endpoint.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	BlockHash       string `json:"blockHash"`
	BlockNumber     string `json:"blockNumber"`
	GasUsed         string `json:"gasUsed"`
}

// BatchStatus is the relay's view of a submitted batch. A batch may
// produce multiple receipts; the last one corresponds to the user-visible
// transfer.
type BatchStatus struct {
	Status   string    `json:"status"`
	Receipts []Receipt `json:"receipts,omitempty"`
}

// Confirmation is the tracker's best-effort result. Unresolved is not an
// error: the batch may still settle after the polling budget elapsed.
type Confirmation struct {
	TransactionHash string
	Resolved        bool
}

// ParseAmount converts a decimal string ("12.5") into minor units with 6
// fractional digits. Rejects negative amounts and excess precision.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("amount must be positive: %s", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > constants.USDCDecimals {
		return nil, fmt.Errorf("amount %s exceeds %d decimal places", s, constants.USDCDecimals)
	}
	frac += strings.Repeat("0", constants.USDCDecimals-len(frac))

	units, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}
	return units, nil
}

// FormatAmount converts minor units back into a decimal string with 6
// fractional digits.
func FormatAmount(units *big.Int) string {
	q, r := new(big.Int).QuoRem(units, big.NewInt(1_000_000), new(big.Int))
	return fmt.Sprintf("%s.%06d", q.String(), r.Abs(r).Int64())
}
