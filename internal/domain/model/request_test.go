package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusDerivation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want Status
	}{
		{"fresh request is pending", Request{}, StatusPending},
		{"mined", Request{Mined: true}, StatusMined},
		{"superseded", Request{Superseded: true}, StatusSuperseded},
		{"stuck", Request{Stuck: true}, StatusStuck},
		{"mined wins over stuck", Request{Mined: true, Stuck: true}, StatusMined},
		{"mined wins over superseded", Request{Mined: true, Superseded: true}, StatusMined},
		{"superseded wins over stuck", Request{Superseded: true, Stuck: true}, StatusSuperseded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Status())
		})
	}
}

func TestFeeParamsExceedsBy10Percent(t *testing.T) {
	prior := FeeParams{
		MaxFeePerGas:         big.NewInt(1000),
		MaxPriorityFeePerGas: big.NewInt(100),
	}

	assert.True(t, FeeParams{
		MaxFeePerGas:         big.NewInt(1100),
		MaxPriorityFeePerGas: big.NewInt(110),
	}.ExceedsBy10Percent(prior))

	// One field below the margin fails the whole check.
	assert.False(t, FeeParams{
		MaxFeePerGas:         big.NewInt(1100),
		MaxPriorityFeePerGas: big.NewInt(109),
	}.ExceedsBy10Percent(prior))

	assert.False(t, FeeParams{
		MaxFeePerGas:         big.NewInt(1099),
		MaxPriorityFeePerGas: big.NewInt(110),
	}.ExceedsBy10Percent(prior))

	assert.False(t, FeeParams{}.ExceedsBy10Percent(prior))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Chain: ChainEthereum,
		Nonce: 42,
		To:    "0x559b5b64d3c1edd4a1b1f2fc0f9f0fbf54b54dd4",
		Value: "1000000000000000000",
		Data:  []byte{0xde, 0xad, 0xbe, 0xef},
		Gas:   21000,
		Fees: FeeParams{
			MaxFeePerGas:         big.NewInt(30_000_000_000),
			MaxPriorityFeePerGas: big.NewInt(2_000_000_000),
		},
	}

	raw, err := MarshalTx(env)
	require.NoError(t, err)

	got, err := UnmarshalTx(raw)
	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestEnvelopeWithFeesKeepsPayload(t *testing.T) {
	env := Envelope{
		Chain: ChainEthereum,
		Nonce: 7,
		To:    "0x559b5b64d3c1edd4a1b1f2fc0f9f0fbf54b54dd4",
		Fees: FeeParams{
			MaxFeePerGas:         big.NewInt(100),
			MaxPriorityFeePerGas: big.NewInt(10),
		},
	}

	bumped := env.WithFees(FeeParams{
		MaxFeePerGas:         big.NewInt(200),
		MaxPriorityFeePerGas: big.NewInt(20),
	})

	assert.Equal(t, env.Nonce, bumped.Nonce)
	assert.Equal(t, env.To, bumped.To)
	assert.Equal(t, big.NewInt(200), bumped.Fees.MaxFeePerGas)
	// Original envelope untouched.
	assert.Equal(t, big.NewInt(100), env.Fees.MaxFeePerGas)
}
