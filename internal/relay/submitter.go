// Package relay contains the relay core: the submission pipeline, the
// inclusion watcher, and the startup recovery coordinator for a single
// managed (chain, address) pair.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/emperorhan/tx-relayer/internal/chain"
	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/metrics"
	"github.com/emperorhan/tx-relayer/internal/nonce"
	"github.com/emperorhan/tx-relayer/internal/retry"
	"github.com/emperorhan/tx-relayer/internal/store"
	redisstore "github.com/emperorhan/tx-relayer/internal/store/redis"
	"github.com/emperorhan/tx-relayer/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	valuePattern   = regexp.MustCompile(`^[0-9]+$`)
)

// Submitter turns an inbound intent into a persisted, broadcast,
// nonce-bound request. Reservation and broadcast are decoupled: the
// allocator's critical section never spans network I/O, so a slow node
// does not block other submissions from reserving subsequent nonces.
type Submitter struct {
	store       store.RequestRepository
	alloc       *nonce.Allocator
	signer      chain.Signer
	broadcaster chain.Broadcaster
	reader      chain.ChainReader
	fees        chain.FeeEstimator
	journal     Journal
	chain       model.Chain
	logger      *slog.Logger

	// Requests whose broadcast succeeded but whose Create failed. Their
	// nonces are on chain and must never be reissued; the records are
	// re-persisted by RunReconciler.
	mu         sync.Mutex
	unrecorded []*model.Request
}

func NewSubmitter(
	repo store.RequestRepository,
	alloc *nonce.Allocator,
	signer chain.Signer,
	broadcaster chain.Broadcaster,
	reader chain.ChainReader,
	fees chain.FeeEstimator,
	journal Journal,
	chainID model.Chain,
	logger *slog.Logger,
) *Submitter {
	if journal == nil {
		journal = NoopJournal{}
	}
	return &Submitter{
		store:       repo,
		alloc:       alloc,
		signer:      signer,
		broadcaster: broadcaster,
		reader:      reader,
		fees:        fees,
		journal:     journal,
		chain:       chainID,
		logger:      logger.With("component", "submitter"),
	}
}

// Submit validates, reserves a nonce, signs, broadcasts, persists, and
// commits. Resubmitting an id returns the stored record and allocates
// nothing. Blocks until startup recovery has seeded the allocator.
func (s *Submitter) Submit(ctx context.Context, intent model.Intent) (*model.Request, error) {
	ctx, span := tracing.Tracer("relay").Start(ctx, "submit")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", intent.ID))
	start := time.Now()

	if err := validateIntent(intent); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(s.chain.String(), "invalid").Inc()
		return nil, err
	}

	existing, err := s.store.Get(ctx, intent.ID)
	if err == nil {
		metrics.SubmissionsTotal.WithLabelValues(s.chain.String(), "duplicate").Inc()
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, &StorageError{Op: "idempotency lookup", Err: err}
	}

	reserved, err := s.alloc.Reserve(ctx, intent.ID)
	if err != nil {
		return nil, err
	}

	fees, err := s.fees.Estimate(ctx, s.chain, nil)
	if err != nil {
		s.abort(reserved)
		return nil, fmt.Errorf("estimate fees: %w", err)
	}

	env := model.Envelope{
		Chain: s.chain,
		Nonce: reserved,
		To:    intent.To,
		Value: intent.Value,
		Data:  intent.Data,
		Fees:  fees,
	}

	signed, err := s.signer.Sign(ctx, env)
	if err != nil {
		// Nothing reached the network; the nonce goes back for this id.
		s.abort(reserved)
		metrics.SubmissionsTotal.WithLabelValues(s.chain.String(), "sign_failed").Inc()
		return nil, fmt.Errorf("sign envelope: %w", err)
	}

	hash, err := s.broadcaster.Submit(ctx, signed.Raw)
	if err != nil {
		hash, err = s.resolveBroadcast(ctx, signed.Hash, reserved, err)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	req := &model.Request{
		ID:    intent.ID,
		Chain: s.chain,
		Nonce: reserved,
		Tx:    env,
		Hash:  hash,
	}

	// Journal before Create. If the process dies between broadcast and
	// the durable write, recovery rebuilds the row from this entry
	// instead of reissuing an in-mempool nonce.
	s.appendJournal(ctx, redisstore.EventBroadcast, req)

	created, err := s.store.Create(ctx, req)
	if err != nil {
		// The transaction is out; the nonce is spent regardless of what
		// the store says. Commit it and keep retrying the record.
		if cerr := s.alloc.Commit(reserved); cerr != nil {
			s.logger.Error("commit after storage failure", "nonce", reserved, "error", cerr)
		}
		s.queueUnrecorded(req)
		metrics.SubmissionsTotal.WithLabelValues(s.chain.String(), "storage_failed").Inc()
		return nil, &StorageError{Op: "create request", Err: err}
	}

	if err := s.alloc.Commit(reserved); err != nil {
		s.logger.Error("commit reserved nonce", "nonce", reserved, "error", err)
	}

	metrics.SubmissionsTotal.WithLabelValues(s.chain.String(), "ok").Inc()
	metrics.SubmissionDurationSeconds.WithLabelValues(s.chain.String()).Observe(time.Since(start).Seconds())
	s.logger.Info("request broadcast",
		"request_id", created.ID, "nonce", created.Nonce, "hash", created.Hash)
	return created, nil
}

// resolveBroadcast decides what a failed Submit call actually means. A
// terminal rejection proves the transaction never entered a mempool and
// the reservation can be aborted. Anything else is ambiguous and is
// settled by asking the chain, never by guessing.
func (s *Submitter) resolveBroadcast(ctx context.Context, signedHash string, reserved uint64, submitErr error) (string, error) {
	if retry.IsAlreadyKnown(submitErr) {
		// The node already holds these exact bytes, from an earlier
		// attempt or a duplicate delivery. The transaction is live and
		// will mine; this broadcast succeeded.
		return signedHash, nil
	}

	decision := retry.Classify(submitErr)
	if !decision.IsTransient() {
		s.abort(reserved)
		metrics.SubmissionsTotal.WithLabelValues(s.chain.String(), "rejected").Inc()
		return "", &BroadcastRejectedError{Reason: decision.Reason, Err: submitErr}
	}

	known, err := s.reader.TransactionKnown(ctx, signedHash)
	if err != nil {
		// Cannot decide. The reservation stays bound to the id; a retry
		// with the same id reuses it and lands in this path again.
		return "", fmt.Errorf("broadcast outcome unresolved (nonce %d held): %w", reserved, submitErr)
	}
	if !known {
		s.abort(reserved)
		metrics.SubmissionsTotal.WithLabelValues(s.chain.String(), "rejected").Inc()
		return "", &BroadcastRejectedError{Reason: "absent_from_mempool", Err: submitErr}
	}

	// The transaction made it out despite the error.
	return signedHash, nil
}

// RunReconciler re-persists requests whose broadcast succeeded but whose
// durable write failed. Runs until ctx is cancelled.
func (s *Submitter) RunReconciler(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.flushUnrecorded(ctx)
		}
	}
}

func (s *Submitter) flushUnrecorded(ctx context.Context) {
	s.mu.Lock()
	pending := s.unrecorded
	s.unrecorded = nil
	s.mu.Unlock()

	for _, req := range pending {
		if _, err := s.store.Create(ctx, req); err != nil {
			s.logger.Warn("reconcile create retry failed",
				"request_id", req.ID, "nonce", req.Nonce, "error", err)
			s.queueUnrecorded(req)
			continue
		}
		s.logger.Info("reconciled unrecorded request",
			"request_id", req.ID, "nonce", req.Nonce)
	}
}

func (s *Submitter) queueUnrecorded(req *model.Request) {
	s.mu.Lock()
	s.unrecorded = append(s.unrecorded, req)
	s.mu.Unlock()
}

func (s *Submitter) abort(reserved uint64) {
	if err := s.alloc.Abort(reserved); err != nil {
		s.logger.Warn("abort reservation", "nonce", reserved, "error", err)
	}
}

func (s *Submitter) appendJournal(ctx context.Context, typ redisstore.EventType, req *model.Request) {
	err := s.journal.Append(ctx, redisstore.Event{
		Type:      typ,
		RequestID: req.ID,
		Chain:     req.Chain,
		Nonce:     req.Nonce,
		Hash:      req.Hash,
		Tx:        &req.Tx,
	})
	if err != nil {
		s.logger.Warn("journal append failed", "request_id", req.ID, "error", err)
	}
}

func validateIntent(intent model.Intent) error {
	if strings.TrimSpace(intent.ID) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !addressPattern.MatchString(intent.To) {
		return &ValidationError{Field: "to", Reason: "must be a 20-byte hex address"}
	}
	if intent.Value != "" && !valuePattern.MatchString(intent.Value) {
		return &ValidationError{Field: "value", Reason: "must be a decimal wei amount"}
	}
	return nil
}
