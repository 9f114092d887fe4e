package relay

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewECDSASigner(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "bare hex key", key: testPrivateKey},
		{name: "0x-prefixed key", key: "0x" + testPrivateKey},
		{name: "garbage", key: "not-a-key", wantErr: true},
		{name: "empty", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := NewECDSASigner(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, common.Address{}, signer.Address())
		})
	}
}

func TestSignDigestFormat(t *testing.T) {
	signer, err := NewECDSASigner(testPrivateKey)
	require.NoError(t, err)

	digest := "0x" + strings.Repeat("ab", 32)
	sig, err := signer.SignDigest(digest)
	require.NoError(t, err)

	// 65 bytes: r(32) + s(32) + v(1), hex-encoded with 0x prefix.
	require.Len(t, sig, 2+130)
	assert.True(t, strings.HasPrefix(sig, "0x"))

	raw, err := hex.DecodeString(sig[2:])
	require.NoError(t, err)
	require.Len(t, raw, 65)
	assert.Contains(t, []byte{27, 28}, raw[64])
}

func TestSignDigestRecoversSigner(t *testing.T) {
	signer, err := NewECDSASigner(testPrivateKey)
	require.NoError(t, err)

	digest := "0x" + strings.Repeat("cd", 32)
	sig, err := signer.SignDigest(digest)
	require.NoError(t, err)

	raw := common.FromHex(sig)
	raw[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(common.FromHex(digest)), raw)
	require.NoError(t, err)

	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub))
}

func TestSignDigestRejectsEmptyDigest(t *testing.T) {
	signer, err := NewECDSASigner(testPrivateKey)
	require.NoError(t, err)

	_, err = signer.SignDigest("")
	assert.Error(t, err)
}

func TestDeriveSalt(t *testing.T) {
	salt := DeriveSalt("user-123")

	// 0x prefix plus 32 bytes of hex.
	assert.Len(t, salt, 2+64)
	assert.True(t, strings.HasPrefix(salt, "0x"))

	// Deterministic for a given identifier, distinct across identifiers.
	assert.Equal(t, salt, DeriveSalt("user-123"))
	assert.NotEqual(t, salt, DeriveSalt("user-124"))

	// Identifier bytes are packed left-to-right, zero-padded on the right.
	assert.True(t, strings.HasPrefix(salt, "0x"+hex.EncodeToString([]byte("user-123"))))
	assert.True(t, strings.HasSuffix(salt, "0000"))
}

func TestDeriveSaltTruncatesLongIdentifiers(t *testing.T) {
	long := strings.Repeat("a", 64)
	salt := DeriveSalt(long)

	assert.Len(t, salt, 2+64)
	assert.Equal(t, salt, DeriveSalt(long))
}
