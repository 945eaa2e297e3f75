package model

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// FeeParams holds the EIP-1559 fee fields of an envelope. Both values are
// in wei. MaxFee must always be at least MaxPriorityFee.
type FeeParams struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// ExceedsBy10Percent reports whether every field of f is at least 10%
// above the corresponding field of prior, the minimum replacement margin
// most EVM mempools enforce.
func (f FeeParams) ExceedsBy10Percent(prior FeeParams) bool {
	return exceedsMargin(f.MaxFeePerGas, prior.MaxFeePerGas) &&
		exceedsMargin(f.MaxPriorityFeePerGas, prior.MaxPriorityFeePerGas)
}

func exceedsMargin(next, prev *big.Int) bool {
	if next == nil || prev == nil {
		return false
	}
	floor := new(big.Int).Mul(prev, big.NewInt(110))
	floor.Div(floor, big.NewInt(100))
	return next.Cmp(floor) >= 0
}

type feeParamsJSON struct {
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
}

func (f FeeParams) MarshalJSON() ([]byte, error) {
	out := feeParamsJSON{}
	if f.MaxFeePerGas != nil {
		out.MaxFeePerGas = f.MaxFeePerGas.String()
	}
	if f.MaxPriorityFeePerGas != nil {
		out.MaxPriorityFeePerGas = f.MaxPriorityFeePerGas.String()
	}
	return json.Marshal(out)
}

func (f *FeeParams) UnmarshalJSON(data []byte) error {
	var in feeParamsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var err error
	if f.MaxFeePerGas, err = parseWei(in.MaxFeePerGas); err != nil {
		return fmt.Errorf("maxFeePerGas: %w", err)
	}
	if f.MaxPriorityFeePerGas, err = parseWei(in.MaxPriorityFeePerGas); err != nil {
		return fmt.Errorf("maxPriorityFeePerGas: %w", err)
	}
	return nil
}

func parseWei(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse wei value %q", s)
	}
	return v, nil
}

// Envelope is the transaction envelope the relay broadcasts. The core
// only interprets the nonce and fee fields; everything else is carried
// opaquely from intent to signer.
type Envelope struct {
	Chain    Chain     `json:"chainId"`
	Nonce    uint64    `json:"nonce"`
	To       string    `json:"to"`
	Value    string    `json:"value"`
	Data     []byte    `json:"data,omitempty"`
	Gas      uint64    `json:"gas,omitempty"`
	Fees     FeeParams `json:"fees"`
}

// WithFees returns a copy of the envelope carrying new fee parameters.
// Nonce and payload are preserved so a fee bump replaces the original
// transaction at the same position.
func (e Envelope) WithFees(fees FeeParams) Envelope {
	e.Fees = fees
	return e
}
