// Package nonce implements the reserve/commit/abort sequencing protocol
// for a single managed (chain, address) pair. A bare counter is not
// enough: a nonce must not count as used until something was actually
// broadcast with it, and an aborted reservation has to go back to the
// request that held it, never to anyone else, or the address ends up
// with a duplicate or a permanent gap.
package nonce

import (
	"context"
	"fmt"
	"sync"

	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/metrics"
)

// Allocator hands out gap-free nonces for one (chain, address) pair.
// Reservations are bound to a request id; aborting a reservation parks
// the nonce for that id so the id's next retry receives the same value.
// The zero Allocator is not usable; it must be seeded by the recovery
// coordinator before the first Reserve returns.
type Allocator struct {
	chain model.Chain

	readyOnce sync.Once
	ready     chan struct{}

	mu      sync.Mutex
	next    uint64
	byID    map[string]uint64
	byNonce map[uint64]string
}

func NewAllocator(chain model.Chain) *Allocator {
	return &Allocator{
		chain:   chain,
		ready:   make(chan struct{}),
		byID:    map[string]uint64{},
		byNonce: map[uint64]string{},
	}
}

// Seed sets the next free nonce and unblocks Reserve. It is called
// exactly once, by recovery, with max(confirmed chain nonce, highest
// persisted nonce + 1). Later calls are ignored.
func (a *Allocator) Seed(next uint64) {
	a.readyOnce.Do(func() {
		a.mu.Lock()
		a.next = next
		a.mu.Unlock()
		close(a.ready)
	})
}

// Reserve returns the nonce for the given request id. A request that
// aborted an earlier reservation gets its original nonce back; a new
// request gets the next free one. Blocks until Seed has run. The
// critical section is a read-and-increment; no I/O happens under it.
func (a *Allocator) Reserve(ctx context.Context, id string) (uint64, error) {
	select {
	case <-a.ready:
	case <-ctx.Done():
		return 0, fmt.Errorf("reserve nonce: %w", ctx.Err())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if n, ok := a.byID[id]; ok {
		return n, nil
	}

	n := a.next
	a.next++
	a.byID[id] = n
	a.byNonce[n] = id
	metrics.NoncesReservedTotal.WithLabelValues(a.chain.String()).Inc()
	return n, nil
}

// Commit marks the nonce as used on chain and releases its reservation.
// After Commit the nonce is permanently bound to the request record in
// the store; the allocator forgets it.
func (a *Allocator) Commit(nonce uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.byNonce[nonce]
	if !ok {
		return fmt.Errorf("commit nonce %d: not reserved", nonce)
	}
	delete(a.byNonce, nonce)
	delete(a.byID, id)
	return nil
}

// Abort parks the nonce for its owning request id. Only legal before any
// broadcast attempt reached a mempool. The nonce is never handed to a
// different request; the byID binding survives so the same id's retry
// receives the same value, and recovery reconciles it after a restart
// if the retry never comes.
func (a *Allocator) Abort(nonce uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byNonce[nonce]; !ok {
		return fmt.Errorf("abort nonce %d: not reserved", nonce)
	}
	metrics.NoncesAbortedTotal.WithLabelValues(a.chain.String()).Inc()
	return nil
}

// Outstanding returns the nonces currently reserved or parked, for
// operator introspection.
func (a *Allocator) Outstanding() map[uint64]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[uint64]string, len(a.byNonce))
	for n, id := range a.byNonce {
		out[n] = id
	}
	return out
}
