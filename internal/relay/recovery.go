package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emperorhan/tx-relayer/internal/alert"
	"github.com/emperorhan/tx-relayer/internal/chain"
	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/metrics"
	"github.com/emperorhan/tx-relayer/internal/nonce"
	"github.com/emperorhan/tx-relayer/internal/store"
	redisstore "github.com/emperorhan/tx-relayer/internal/store/redis"
)

// Recovery reconciles the durable request store against the chain after
// a restart, then seeds the nonce allocator. Nothing is submitted and no
// nonce is handed out until Run returns nil. An unreadable chain fails
// startup outright; guessing against stale state risks a duplicate or a
// permanently wedged nonce.
type Recovery struct {
	chain   model.Chain
	address string
	store   store.RequestRepository
	reader  chain.ChainReader
	alloc   *nonce.Allocator
	journal Journal
	alerter alert.Alerter
	logger  *slog.Logger
}

func NewRecovery(
	chainID model.Chain,
	address string,
	repo store.RequestRepository,
	reader chain.ChainReader,
	alloc *nonce.Allocator,
	journal Journal,
	alerter alert.Alerter,
	logger *slog.Logger,
) *Recovery {
	if journal == nil {
		journal = NoopJournal{}
	}
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	return &Recovery{
		chain:   chainID,
		address: address,
		store:   repo,
		reader:  reader,
		alloc:   alloc,
		journal: journal,
		alerter: alerter,
		logger:  logger.With("component", "recovery", "chain", chainID.String()),
	}
}

// Run classifies every unresolved request as mined, superseded, or still
// pending, then unblocks the allocator at the first genuinely free
// nonce. Each classification is proven by a chain query, never inferred.
func (r *Recovery) Run(ctx context.Context) error {
	confirmed, err := r.reader.ConfirmedNonce(ctx, r.address)
	if err != nil {
		return fmt.Errorf("recovery: confirmed nonce for %s: %w", r.address, err)
	}

	if err := r.replayJournal(ctx); err != nil {
		return err
	}

	unresolved, err := r.store.ListUnresolved(ctx, r.chain)
	if err != nil {
		return fmt.Errorf("recovery: list unresolved: %w", err)
	}

	var mined, superseded, pending int
	for _, req := range unresolved {
		receipt, err := r.reader.Receipt(ctx, req.Hash)
		if err != nil {
			return fmt.Errorf("recovery: receipt for %s (request %s): %w", req.Hash, req.ID, err)
		}

		switch {
		case receipt != nil:
			if err := r.store.MarkMined(ctx, req.ID); err != nil {
				return fmt.Errorf("recovery: mark mined %s: %w", req.ID, err)
			}
			mined++
			metrics.RecoveryOutcomesTotal.WithLabelValues(r.chain.String(), "mined").Inc()
			r.appendJournal(ctx, redisstore.EventMined, req)

		case req.Nonce < confirmed:
			// The nonce was consumed but not by our hash. Some other
			// transaction, a manual replacement or an earlier bump we
			// lost track of, took the slot.
			if err := r.store.MarkSuperseded(ctx, req.ID); err != nil {
				return fmt.Errorf("recovery: mark superseded %s: %w", req.ID, err)
			}
			superseded++
			metrics.RecoveryOutcomesTotal.WithLabelValues(r.chain.String(), "superseded").Inc()
			r.appendJournal(ctx, redisstore.EventSuperseded, req)
			r.alertSuperseded(ctx, req)

		default:
			// Nonce not yet consumed. The watcher takes it from here,
			// rebroadcasting or escalating as needed.
			pending++
			metrics.RecoveryOutcomesTotal.WithLabelValues(r.chain.String(), "pending").Inc()
		}
	}

	seed := confirmed
	highest, any, err := r.store.HighestNonce(ctx, r.chain)
	if err != nil {
		return fmt.Errorf("recovery: highest nonce: %w", err)
	}
	if any && highest+1 > seed {
		seed = highest + 1
	}
	r.alloc.Seed(seed)

	r.logger.Info("recovery complete",
		"confirmed_nonce", confirmed,
		"next_nonce", seed,
		"mined", mined,
		"superseded", superseded,
		"pending", pending)
	return nil
}

// replayJournal re-creates request rows for broadcasts that were
// journaled but never reached the requests table. That gap opens when
// the process dies between the broadcast and the durable write; without
// the replay the nonce is in a mempool yet invisible to the store, and
// the allocator would reissue it.
func (r *Recovery) replayJournal(ctx context.Context) error {
	events, err := r.journal.Events(ctx)
	if err != nil {
		return fmt.Errorf("recovery: read journal: %w", err)
	}

	latest := map[string]redisstore.Event{}
	for _, ev := range events {
		if ev.Type != redisstore.EventBroadcast || ev.Chain != r.chain || ev.Tx == nil {
			continue
		}
		latest[ev.RequestID] = ev
	}

	for id, ev := range latest {
		_, err := r.store.Get(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("recovery: journal lookup %s: %w", id, err)
		}

		req := &model.Request{
			ID:    id,
			Chain: ev.Chain,
			Nonce: ev.Nonce,
			Tx:    *ev.Tx,
			Hash:  ev.Hash,
		}
		if _, err := r.store.Create(ctx, req); err != nil {
			return fmt.Errorf("recovery: replay journaled broadcast %s: %w", id, err)
		}
		metrics.RecoveryOutcomesTotal.WithLabelValues(r.chain.String(), "replayed").Inc()
		r.logger.Warn("re-created request from journal",
			"request_id", id, "nonce", ev.Nonce, "hash", ev.Hash)
	}
	return nil
}

func (r *Recovery) alertSuperseded(ctx context.Context, req *model.Request) {
	err := r.alerter.Send(ctx, alert.Alert{
		Type:      alert.AlertTypeSuperseded,
		Chain:     r.chain.String(),
		RequestID: req.ID,
		Title:     "request superseded during recovery",
		Message:   fmt.Sprintf("nonce %d was consumed by an unknown transaction, stored hash %s never mined", req.Nonce, req.Hash),
	})
	if err != nil {
		r.logger.Warn("superseded alert failed", "request_id", req.ID, "error", err)
	}
}

func (r *Recovery) appendJournal(ctx context.Context, typ redisstore.EventType, req *model.Request) {
	err := r.journal.Append(ctx, redisstore.Event{
		Type:      typ,
		RequestID: req.ID,
		Chain:     req.Chain,
		Nonce:     req.Nonce,
		Hash:      req.Hash,
	})
	if err != nil {
		r.logger.Warn("journal append failed", "request_id", req.ID, "error", err)
	}
}
