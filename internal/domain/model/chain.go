package model

import "strconv"

// Chain is the numeric EVM chain identifier (EIP-155).
type Chain uint64

const (
	ChainEthereum Chain = 1
	ChainPolygon  Chain = 137
	ChainBase     Chain = 8453
	ChainArbitrum Chain = 42161
	ChainSepolia  Chain = 11155111
)

func (c Chain) String() string {
	return strconv.FormatUint(uint64(c), 10)
}
