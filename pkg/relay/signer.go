package relay

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer authorizes a prepared batch by signing the relay-issued challenge
// digest. Injected explicitly wherever signing happens so the payment core
// stays testable with a fake.
type Signer interface {
	// Address returns the signer's EOA address, used as the owner
	// identity when requesting smart accounts.
	Address() common.Address

	// SignDigest signs the 32-byte challenge digest and returns a
	// 65-byte hex signature with the Ethereum v offset applied.
	SignDigest(digest string) (string, error)
}

// ECDSASigner signs with a secp256k1 private key using EIP-191 personal
// message framing over the raw digest, matching what the relay expects for
// secp256k1 signature envelopes.
type ECDSASigner struct {
	key *ecdsa.PrivateKey
}

// NewECDSASigner creates a signer from a hex-encoded private key.
func NewECDSASigner(privateKeyHex string) (*ECDSASigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid signer private key: %w", err)
	}

	return &ECDSASigner{key: key}, nil
}

func (s *ECDSASigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *ECDSASigner) SignDigest(digest string) (string, error) {
	raw := common.FromHex(digest)
	if len(raw) == 0 {
		return "", fmt.Errorf("empty challenge digest")
	}

	signature, err := crypto.Sign(accounts.TextHash(raw), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge digest: %w", err)
	}

	// Convert v from recovery id to ethereum format (27/28)
	if len(signature) == 65 {
		signature[64] += 27
	}

	return "0x" + hex.EncodeToString(signature), nil
}

// DeriveSalt converts a user identifier into the deterministic 32-byte hex
// salt used for smart account derivation. The identifier's bytes are
// packed left-to-right and zero-padded, so the same user always maps to
// the same account.
func DeriveSalt(userID string) string {
	data := []byte(userID)
	if len(data) > 32 {
		data = data[:32]
	}

	var b strings.Builder
	b.WriteString("0x")
	b.WriteString(hex.EncodeToString(data))
	for i := len(data); i < 32; i++ {
		b.WriteString("00")
	}
	return b.String()
}
