package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "whole amount", input: "12", want: 12_000_000},
		{name: "fractional amount", input: "12.5", want: 12_500_000},
		{name: "full precision", input: "0.000001", want: 1},
		{name: "leading dot", input: ".5", want: 500_000},
		{name: "zero", input: "0", want: 0},
		{name: "whitespace trimmed", input: " 3.25 ", want: 3_250_000},
		{name: "empty", input: "", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "too many decimals", input: "1.1234567", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "two dots", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.500000", FormatAmount(big.NewInt(12_500_000)))
	assert.Equal(t, "0.000001", FormatAmount(big.NewInt(1)))
	assert.Equal(t, "0.000000", FormatAmount(big.NewInt(0)))
	assert.Equal(t, "1.000000", FormatAmount(big.NewInt(1_000_000)))
}

func TestParseFormatRoundTrip(t *testing.T) {
	units, err := ParseAmount("42.123456")
	require.NoError(t, err)
	assert.Equal(t, "42.123456", FormatAmount(units))
}

func TestPendingHash(t *testing.T) {
	hash := PendingHash("0xbatch1")

	assert.Equal(t, "pending-0xbatch1", hash)
	assert.True(t, IsPendingHash(hash))
	assert.False(t, IsPendingHash("0xdeadbeef"))
	assert.False(t, IsPendingHash(""))
}

func TestBalances(t *testing.T) {
	b := Balances{Liquid: big.NewInt(30), YieldBearing: big.NewInt(70)}

	assert.Equal(t, int64(100), b.Total().Int64())
	assert.Equal(t, int64(30), b.Of(RepresentationLiquid).Int64())
	assert.Equal(t, int64(70), b.Of(RepresentationYield).Int64())
}

func TestConversionPlanNeedsConversion(t *testing.T) {
	withShortfall := &ConversionPlan{Target: RepresentationLiquid, Shortfall: big.NewInt(10)}
	assert.True(t, withShortfall.NeedsConversion())

	covered := &ConversionPlan{Target: RepresentationYield, Shortfall: big.NewInt(0)}
	assert.False(t, covered.NeedsConversion())
}

func TestProfileHasWallet(t *testing.T) {
	assert.False(t, (*Profile)(nil).HasWallet())
	assert.False(t, (&Profile{}).HasWallet())
	assert.True(t, (&Profile{SmartAccountAddress: "0xaa"}).HasWallet())
}

func TestRepresentationString(t *testing.T) {
	assert.Equal(t, "liquid", RepresentationLiquid.String())
	assert.Equal(t, "yield", RepresentationYield.String())
}
