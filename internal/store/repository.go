package store

import (
	"context"
	"errors"

	"github.com/emperorhan/tx-relayer/internal/domain/model"
)

// ErrNotFound is returned by Get when no request exists for the id.
var ErrNotFound = errors.New("request not found")

// ErrAlreadyMined is returned by UpdateHash when the request confirmed
// before the rewrite landed. The caller must treat the old hash as final.
var ErrAlreadyMined = errors.New("request already mined")

// RequestRepository is the durable source of truth for request state.
// Mutations are atomic: a call that returns nil has committed. Create is
// idempotent on id; MarkMined is idempotent outright.
type RequestRepository interface {
	// Create persists a new request after its first successful broadcast.
	// If id already exists the stored record is returned unchanged.
	Create(ctx context.Context, req *model.Request) (*model.Request, error)

	Get(ctx context.Context, id string) (*model.Request, error)

	// UpdateHash replaces the envelope and hash after a fee bump, bumps
	// the attempt counter, and stamps the broadcast time. Fails with
	// ErrAlreadyMined if the request has confirmed in the meantime.
	UpdateHash(ctx context.Context, id, newHash string, newTx model.Envelope) error

	MarkMined(ctx context.Context, id string) error
	MarkSuperseded(ctx context.Context, id string) error
	MarkStuck(ctx context.Context, id string) error

	// ListPending returns requests awaiting confirmation (not mined,
	// superseded, or stuck) in ascending nonce order.
	ListPending(ctx context.Context, chain model.Chain) ([]*model.Request, error)

	// ListUnresolved returns everything recovery has to reconcile: all
	// non-mined, non-superseded requests including stuck ones, in
	// ascending nonce order.
	ListUnresolved(ctx context.Context, chain model.Chain) ([]*model.Request, error)

	// HighestNonce returns the highest persisted nonce for the chain and
	// whether any request exists at all.
	HighestNonce(ctx context.Context, chain model.Chain) (uint64, bool, error)
}
