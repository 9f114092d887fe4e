package constants

import "time"

const (
	DelayBetweenRPCCalls  = 200              // delay in milliseconds between RPC calls
	CallContractTimeout   = 10 * time.Second // timeout for a single eth_call
	RelayTimeout          = 30 * time.Second // timeout for a relay request
	TLSHandshakeTimeout   = 10 * time.Second // timeout for TLS handshake
	ResponseHeaderTimeout = 20 * time.Second // timeout for response header
	ExpectContinueTimeout = 1 * time.Second  // timeout for expect continue
	MaxResponseBodySize   = 10 * 1024 * 1024 // maximum response body size in bytes (10MB)
)

const (
	USDCDecimals = 6
)

// Confirmation polling budget. The tracker gives up after whichever bound
// is hit first and the payment stays pending until resolved out-of-band.
const (
	ConfirmationPollInterval = 1 * time.Second
	ConfirmationMaxAttempts  = 15
	ConfirmationBudget       = 20 * time.Second
)

// Network Types
const (
	NetworkBaseSepolia = "base-sepolia"
	ChainIDBaseSepolia = "0x14a34" // 84532
)

// Token and protocol contracts on Base Sepolia
const (
	USDCAddressBaseSepolia  = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
	AUSDCAddressBaseSepolia = "0xf53B60F4006cab2b3C4688ce41fD5362427A2A66"
	AavePoolBaseSepolia     = "0x07eA79F68B2B3df564D0A34F8e19D9B1e339814b"
)

// NetworkToChainID maps network names to hex chain IDs for relay requests
var NetworkToChainID = map[string]string{
	NetworkBaseSepolia: ChainIDBaseSepolia,
}

var OfficialRPCEndpoints = map[string][]string{
	NetworkBaseSepolia: {"https://sepolia.base.org"},
}

// WelcomeBonusAmount is 1.00 USDC in minor units, sent once from the
// treasury account after wallet initialization.
const WelcomeBonusAmount = 1_000_000

// PendingHashPrefix marks a transaction record whose settlement hash was
// not yet known when the record was written. The suffix is the relay batch
// identifier so the hash can be resolved later.
const PendingHashPrefix = "pending-"
