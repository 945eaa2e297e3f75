package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emperorhan/tx-relayer/internal/alert"
	"github.com/emperorhan/tx-relayer/internal/chain"
	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/metrics"
	"github.com/emperorhan/tx-relayer/internal/retry"
	"github.com/emperorhan/tx-relayer/internal/store"
	redisstore "github.com/emperorhan/tx-relayer/internal/store/redis"
	"golang.org/x/sync/errgroup"
)

// WatcherConfig tunes the inclusion poll loop.
type WatcherConfig struct {
	Chain             model.Chain
	PollInterval      time.Duration
	StuckTimeout      time.Duration
	ConfirmationDepth int64
	MaxEscalations    int
	// ReceiptConcurrency bounds parallel receipt lookups per tick.
	ReceiptConcurrency int
}

func (c *WatcherConfig) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.StuckTimeout <= 0 {
		c.StuckTimeout = 2 * time.Minute
	}
	if c.ConfirmationDepth <= 0 {
		c.ConfirmationDepth = 1
	}
	if c.MaxEscalations <= 0 {
		c.MaxEscalations = 5
	}
	if c.ReceiptConcurrency <= 0 {
		c.ReceiptConcurrency = 8
	}
}

// Watcher polls the chain for pending requests, confirms them past the
// configured depth, escalates fees on the lowest stalled nonce, and
// parks requests that exhaust their escalation budget.
type Watcher struct {
	cfg         WatcherConfig
	store       store.RequestRepository
	signer      chain.Signer
	broadcaster chain.Broadcaster
	reader      chain.ChainReader
	fees        chain.FeeEstimator
	journal     Journal
	alerter     alert.Alerter
	clock       Clock
	logger      *slog.Logger

	// Serializes hash rewrites against concurrent ticks.
	mu sync.Mutex
}

func NewWatcher(
	cfg WatcherConfig,
	repo store.RequestRepository,
	signer chain.Signer,
	broadcaster chain.Broadcaster,
	reader chain.ChainReader,
	fees chain.FeeEstimator,
	journal Journal,
	alerter alert.Alerter,
	clock Clock,
	logger *slog.Logger,
) *Watcher {
	cfg.applyDefaults()
	if journal == nil {
		journal = NoopJournal{}
	}
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	if clock == nil {
		clock = NewClock()
	}
	return &Watcher{
		cfg:         cfg,
		store:       repo,
		signer:      signer,
		broadcaster: broadcaster,
		reader:      reader,
		fees:        fees,
		journal:     journal,
		alerter:     alerter,
		clock:       clock,
		logger:      logger.With("component", "watcher", "chain", cfg.Chain.String()),
	}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("watcher started",
		"poll_interval", w.cfg.PollInterval,
		"confirmation_depth", w.cfg.ConfirmationDepth,
		"stuck_timeout", w.cfg.StuckTimeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if err := w.Tick(ctx); err != nil {
				w.logger.Warn("tick failed", "error", err)
			}
		}
	}
}

type receiptResult struct {
	receipt       *chain.Receipt
	confirmations int64
}

// Tick runs one poll cycle. Exported so tests and the recovery path can
// drive the loop directly.
func (w *Watcher) Tick(ctx context.Context) error {
	metrics.WatcherTicksTotal.WithLabelValues(w.cfg.Chain.String()).Inc()

	pending, err := w.store.ListPending(ctx, w.cfg.Chain)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	metrics.PendingRequests.WithLabelValues(w.cfg.Chain.String()).Set(float64(len(pending)))
	if len(pending) == 0 {
		return nil
	}

	results := w.fetchReceipts(ctx, pending)

	// Walk in ascending nonce order. A nonce cannot mine before every
	// lower nonce has, so once one request is unconfirmed everything
	// above it only waits; and only the lowest stalled nonce is worth
	// escalating, because it is the one holding the rest of the queue.
	blocked := false
	escalated := false
	for _, req := range pending {
		res, ok := results[req.ID]
		if !ok {
			// Lookup failed this tick. Treat as unknown and stop
			// resolving higher nonces from stale information.
			blocked = true
			continue
		}

		if res.receipt != nil {
			if res.confirmations >= w.cfg.ConfirmationDepth && !blocked {
				w.markMined(ctx, req)
				continue
			}
			// Included but not deep enough yet.
			blocked = true
			continue
		}

		wasBlocked := blocked
		blocked = true
		if wasBlocked || escalated {
			continue
		}
		// Lowest pending nonce with no inclusion. Decide whether it has
		// stalled long enough to act on.
		if w.clock.Now().Sub(req.LastBroadcastAt) < w.cfg.StuckTimeout {
			continue
		}
		escalated = true
		if req.Attempts > w.cfg.MaxEscalations {
			w.markStuck(ctx, req)
			continue
		}
		w.escalate(ctx, req)
	}
	return nil
}

// fetchReceipts resolves receipts and confirmation depths concurrently.
// A failed lookup simply yields no entry; the request is retried on the
// next tick.
func (w *Watcher) fetchReceipts(ctx context.Context, pending []*model.Request) map[string]receiptResult {
	var mu sync.Mutex
	results := make(map[string]receiptResult, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.ReceiptConcurrency)
	for _, req := range pending {
		req := req
		g.Go(func() error {
			receipt, err := w.reader.Receipt(gctx, req.Hash)
			if err != nil {
				w.logger.Debug("receipt lookup failed", "request_id", req.ID, "error", err)
				return nil
			}
			res := receiptResult{receipt: receipt}
			if receipt != nil {
				confs, err := w.reader.Confirmations(gctx, receipt)
				if err != nil {
					w.logger.Debug("confirmation lookup failed", "request_id", req.ID, "error", err)
					return nil
				}
				res.confirmations = confs
			}
			mu.Lock()
			results[req.ID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (w *Watcher) markMined(ctx context.Context, req *model.Request) {
	if err := w.store.MarkMined(ctx, req.ID); err != nil {
		w.logger.Warn("mark mined failed", "request_id", req.ID, "error", err)
		return
	}
	metrics.RequestsMinedTotal.WithLabelValues(w.cfg.Chain.String()).Inc()
	w.appendJournal(ctx, redisstore.EventMined, req, req.Hash)
	w.logger.Info("request mined", "request_id", req.ID, "nonce", req.Nonce, "hash", req.Hash)
}

func (w *Watcher) markStuck(ctx context.Context, req *model.Request) {
	if err := w.store.MarkStuck(ctx, req.ID); err != nil {
		w.logger.Warn("mark stuck failed", "request_id", req.ID, "error", err)
		return
	}
	metrics.RequestsStuckTotal.WithLabelValues(w.cfg.Chain.String()).Inc()
	w.appendJournal(ctx, redisstore.EventStuck, req, req.Hash)
	w.logger.Error("request stuck, escalations exhausted",
		"request_id", req.ID, "nonce", req.Nonce, "attempts", req.Attempts)

	err := w.alerter.Send(ctx, alert.Alert{
		Type:      alert.AlertTypeStuckTx,
		Chain:     w.cfg.Chain.String(),
		RequestID: req.ID,
		Title:     "transaction stuck",
		Message:   fmt.Sprintf("nonce %d exhausted %d escalations, manual intervention required", req.Nonce, req.Attempts),
		Fields: map[string]string{
			"hash":  req.Hash,
			"nonce": fmt.Sprintf("%d", req.Nonce),
		},
	})
	if err != nil {
		w.logger.Warn("stuck alert failed", "request_id", req.ID, "error", err)
	}
}

// escalate replaces the transaction at the same nonce with a higher-fee
// version. The replacement keeps the payload; only the fee fields move.
func (w *Watcher) escalate(ctx context.Context, req *model.Request) {
	prior := req.Tx.Fees
	bumped, err := w.fees.Estimate(ctx, w.cfg.Chain, &prior)
	if err != nil {
		w.logger.Warn("escalation estimate failed", "request_id", req.ID, "error", err)
		return
	}

	env := req.Tx.WithFees(bumped)
	signed, err := w.signer.Sign(ctx, env)
	if err != nil {
		w.logger.Warn("escalation sign failed", "request_id", req.ID, "error", err)
		return
	}

	hash, err := w.broadcaster.Submit(ctx, signed.Raw)
	if err != nil {
		switch {
		case retry.IsNonceTooLow(err):
			// The prior version was mined between our receipt check and
			// this broadcast. The next tick will see the receipt.
			w.logger.Info("replacement rejected, original already included",
				"request_id", req.ID, "nonce", req.Nonce)
			return
		case retry.IsAlreadyKnown(err):
			// The node already holds this replacement, likely from an
			// earlier tick whose hash rewrite failed. Record it.
			hash = signed.Hash
		default:
			w.logger.Warn("escalation broadcast failed", "request_id", req.ID, "error", err)
			return
		}
	}

	w.mu.Lock()
	err = w.store.UpdateHash(ctx, req.ID, hash, env)
	w.mu.Unlock()
	if err != nil {
		if errors.Is(err, store.ErrAlreadyMined) {
			// Confirmed under the old hash after we broadcast the bump.
			// The replacement can no longer win; the stored hash stands.
			return
		}
		w.logger.Warn("escalation hash rewrite failed", "request_id", req.ID, "error", err)
		return
	}

	metrics.FeeBumpsTotal.WithLabelValues(w.cfg.Chain.String()).Inc()
	w.appendJournal(ctx, redisstore.EventFeeBump, req, hash)
	w.logger.Info("fee escalation broadcast",
		"request_id", req.ID,
		"nonce", req.Nonce,
		"attempt", req.Attempts+1,
		"old_hash", req.Hash,
		"new_hash", hash)
}

func (w *Watcher) appendJournal(ctx context.Context, typ redisstore.EventType, req *model.Request, hash string) {
	err := w.journal.Append(ctx, redisstore.Event{
		Type:      typ,
		RequestID: req.ID,
		Chain:     req.Chain,
		Nonce:     req.Nonce,
		Hash:      hash,
	})
	if err != nil {
		w.logger.Warn("journal append failed", "request_id", req.ID, "error", err)
	}
}
