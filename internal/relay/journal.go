package relay

import (
	"context"

	redisstore "github.com/emperorhan/tx-relayer/internal/store/redis"
)

// Journal records request lifecycle events and replays them during
// recovery. Broadcast appends happen before the durable Create so a
// crash between the two leaves a journal trail instead of an invisible
// in-mempool nonce; other appends are best effort and the requests
// table stays authoritative for them.
type Journal interface {
	Append(ctx context.Context, ev redisstore.Event) error
	Events(ctx context.Context) ([]redisstore.Event, error)
}

// NoopJournal is used when no journal backend is configured.
type NoopJournal struct{}

func (NoopJournal) Append(_ context.Context, _ redisstore.Event) error { return nil }

func (NoopJournal) Events(_ context.Context) ([]redisstore.Event, error) { return nil, nil }
