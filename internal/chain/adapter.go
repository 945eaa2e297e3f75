package chain

import (
	"context"

	"github.com/emperorhan/tx-relayer/internal/domain/model"
)

// Receipt is the chain's record of an included transaction.
type Receipt struct {
	TxHash      string
	BlockNumber int64
	Success     bool
}

// Signer produces signed transaction bytes for an envelope. Signing
// internals (key custody, hardware, sidecar) are opaque to the core.
type Signer interface {
	Sign(ctx context.Context, env model.Envelope) (model.SignedTx, error)
}

// Broadcaster submits signed bytes to the network. Errors should be
// classifiable by retry.Classify so the pipeline can tell a terminal
// rejection from an ambiguous transport failure.
type Broadcaster interface {
	Submit(ctx context.Context, raw []byte) (hash string, err error)
}

// ChainReader exposes the read-side chain queries the relay depends on.
type ChainReader interface {
	// ConfirmedNonce returns the next free nonce for the address as the
	// chain sees it, counting only mined transactions.
	ConfirmedNonce(ctx context.Context, address string) (uint64, error)

	// Receipt returns the inclusion receipt for hash, or nil if the
	// transaction has not been mined.
	Receipt(ctx context.Context, hash string) (*Receipt, error)

	// Confirmations returns the number of blocks mined on top of the
	// receipt's block, inclusive of that block.
	Confirmations(ctx context.Context, r *Receipt) (int64, error)

	// TransactionKnown reports whether the chain or its mempool knows the
	// transaction at all. Used to resolve ambiguous broadcast outcomes.
	TransactionKnown(ctx context.Context, hash string) (bool, error)
}

// FeeEstimator prices a transaction. When prior is non-nil the returned
// parameters must strictly exceed it by at least the chain's minimum
// replacement margin.
type FeeEstimator interface {
	Estimate(ctx context.Context, chain model.Chain, prior *model.FeeParams) (model.FeeParams, error)
}
