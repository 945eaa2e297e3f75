package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	chainmocks "github.com/emperorhan/tx-relayer/internal/chain/mocks"
	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/nonce"
	"github.com/emperorhan/tx-relayer/internal/store"
	storemocks "github.com/emperorhan/tx-relayer/internal/store/mocks"
	redisstore "github.com/emperorhan/tx-relayer/internal/store/redis"
)

const testAddress = "0x559b5b64d3c1edd4a1b1f2fc0f9f0fbf54b54dd4"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFees() model.FeeParams {
	return model.FeeParams{
		MaxFeePerGas:         big.NewInt(30_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(2_000_000_000),
	}
}

// memoryJournal keeps appended events in process for assertions.
type memoryJournal struct {
	mu     sync.Mutex
	events []redisstore.Event
}

func (j *memoryJournal) Append(_ context.Context, ev redisstore.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *memoryJournal) Events(_ context.Context) ([]redisstore.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]redisstore.Event(nil), j.events...), nil
}

type submitterFixture struct {
	repo        *storemocks.MockRequestRepository
	signer      *chainmocks.MockSigner
	broadcaster *chainmocks.MockBroadcaster
	reader      *chainmocks.MockChainReader
	fees        *chainmocks.MockFeeEstimator
	alloc       *nonce.Allocator
	journal     *memoryJournal
	submitter   *Submitter
}

func newSubmitterFixture(t *testing.T, seed uint64) *submitterFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &submitterFixture{
		repo:        storemocks.NewMockRequestRepository(ctrl),
		signer:      chainmocks.NewMockSigner(ctrl),
		broadcaster: chainmocks.NewMockBroadcaster(ctrl),
		reader:      chainmocks.NewMockChainReader(ctrl),
		fees:        chainmocks.NewMockFeeEstimator(ctrl),
		alloc:       nonce.NewAllocator(model.ChainEthereum),
		journal:     &memoryJournal{},
	}
	f.alloc.Seed(seed)
	f.submitter = NewSubmitter(
		f.repo, f.alloc, f.signer, f.broadcaster, f.reader, f.fees,
		f.journal, model.ChainEthereum, testLogger(),
	)
	return f
}

func (f *submitterFixture) expectNew(id string) {
	f.repo.EXPECT().Get(gomock.Any(), id).Return(nil, store.ErrNotFound)
}

func TestSubmitHappyPath(t *testing.T) {
	f := newSubmitterFixture(t, 5)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().
		Estimate(gomock.Any(), model.ChainEthereum, nil).
		Return(testFees(), nil)
	f.signer.EXPECT().
		Sign(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, env model.Envelope) (model.SignedTx, error) {
			assert.Equal(t, uint64(5), env.Nonce)
			assert.Equal(t, testAddress, env.To)
			return model.SignedTx{Raw: []byte{0x02}, Hash: "0xabc"}, nil
		})
	f.broadcaster.EXPECT().
		Submit(gomock.Any(), []byte{0x02}).
		Return("0xabc", nil)
	f.repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.Request) (*model.Request, error) {
			assert.Equal(t, uint64(5), req.Nonce)
			assert.Equal(t, "0xabc", req.Hash)
			return req, nil
		})

	req, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress, Value: "1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), req.Nonce)
	assert.Equal(t, "0xabc", req.Hash)

	// The nonce is committed: the allocator no longer tracks it.
	assert.Empty(t, f.alloc.Outstanding())
}

func TestSubmitValidation(t *testing.T) {
	f := newSubmitterFixture(t, 0)
	ctx := context.Background()

	tests := []struct {
		name   string
		intent model.Intent
		field  string
	}{
		{"empty id", model.Intent{To: testAddress}, "id"},
		{"blank id", model.Intent{ID: "  ", To: testAddress}, "id"},
		{"missing to", model.Intent{ID: "r"}, "to"},
		{"malformed to", model.Intent{ID: "r", To: "0x123"}, "to"},
		{"non-decimal value", model.Intent{ID: "r", To: testAddress, Value: "1.5e18"}, "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.submitter.Submit(ctx, tt.intent)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSubmitDuplicateIDReturnsStoredRequest(t *testing.T) {
	f := newSubmitterFixture(t, 0)
	ctx := context.Background()

	stored := &model.Request{ID: "req-1", Nonce: 3, Hash: "0xold"}
	f.repo.EXPECT().Get(gomock.Any(), "req-1").Return(stored, nil)

	req, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	require.NoError(t, err)
	assert.Same(t, stored, req)

	// No reservation was made for the duplicate.
	assert.Empty(t, f.alloc.Outstanding())
}

func TestSubmitSignFailureReleasesNonceToSameID(t *testing.T) {
	f := newSubmitterFixture(t, 9)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().Estimate(gomock.Any(), model.ChainEthereum, nil).Return(testFees(), nil)
	f.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(model.SignedTx{}, errors.New("sidecar down"))

	_, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	require.Error(t, err)

	// The retry of the same request reuses nonce 9; a different request
	// must not receive it.
	n, err := f.alloc.Reserve(ctx, "req-2")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n)
	n, err = f.alloc.Reserve(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), n)
}

func TestSubmitTerminalRejectionAborts(t *testing.T) {
	f := newSubmitterFixture(t, 0)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().Estimate(gomock.Any(), model.ChainEthereum, nil).Return(testFees(), nil)
	f.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(model.SignedTx{Raw: []byte{0x02}, Hash: "0xabc"}, nil)
	f.broadcaster.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("insufficient funds for gas * price + value"))

	_, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	var rerr *BroadcastRejectedError
	require.ErrorAs(t, err, &rerr)

	// Reservation parked for the same id, not handed elsewhere.
	n, err := f.alloc.Reserve(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestSubmitAmbiguousResolvedInMempool(t *testing.T) {
	f := newSubmitterFixture(t, 0)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().Estimate(gomock.Any(), model.ChainEthereum, nil).Return(testFees(), nil)
	f.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(model.SignedTx{Raw: []byte{0x02}, Hash: "0xabc"}, nil)
	f.broadcaster.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("connection reset by peer"))
	// The chain says the transaction made it out despite the error.
	f.reader.EXPECT().TransactionKnown(gomock.Any(), "0xabc").Return(true, nil)
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.Request) (*model.Request, error) {
			return req, nil
		})

	req, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", req.Hash)
	assert.Empty(t, f.alloc.Outstanding())
}

func TestSubmitAmbiguousResolvedAbsent(t *testing.T) {
	f := newSubmitterFixture(t, 0)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().Estimate(gomock.Any(), model.ChainEthereum, nil).Return(testFees(), nil)
	f.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(model.SignedTx{Raw: []byte{0x02}, Hash: "0xabc"}, nil)
	f.broadcaster.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("connection reset by peer"))
	f.reader.EXPECT().TransactionKnown(gomock.Any(), "0xabc").Return(false, nil)

	_, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	var rerr *BroadcastRejectedError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "absent_from_mempool", rerr.Reason)

	n, err := f.alloc.Reserve(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestSubmitAmbiguousUnresolvedHoldsReservation(t *testing.T) {
	f := newSubmitterFixture(t, 4)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().Estimate(gomock.Any(), model.ChainEthereum, nil).Return(testFees(), nil)
	f.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(model.SignedTx{Raw: []byte{0x02}, Hash: "0xabc"}, nil)
	f.broadcaster.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("connection reset by peer"))
	f.reader.EXPECT().TransactionKnown(gomock.Any(), "0xabc").Return(false, errors.New("rpc unreachable"))

	_, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	require.Error(t, err)

	// Neither aborted nor committed: the nonce stays bound to the id.
	out := f.alloc.Outstanding()
	assert.Equal(t, "req-1", out[4])
}

func TestSubmitAlreadyKnownBroadcastSucceeds(t *testing.T) {
	f := newSubmitterFixture(t, 7)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().Estimate(gomock.Any(), model.ChainEthereum, nil).Return(testFees(), nil)
	f.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(model.SignedTx{Raw: []byte{0x02}, Hash: "0xabc"}, nil)
	// The node already holds the exact bytes: an earlier delivery got
	// through. The transaction is live, so this is a success, not a
	// rejection, and the nonce must be committed and the row persisted.
	f.broadcaster.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("already known"))
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.Request) (*model.Request, error) {
			assert.Equal(t, "0xabc", req.Hash)
			return req, nil
		})

	req, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", req.Hash)
	assert.Equal(t, uint64(7), req.Nonce)
	assert.Empty(t, f.alloc.Outstanding())
}

func TestSubmitCanceledMidBroadcastConsultsChain(t *testing.T) {
	f := newSubmitterFixture(t, 0)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().Estimate(gomock.Any(), model.ChainEthereum, nil).Return(testFees(), nil)
	f.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(model.SignedTx{Raw: []byte{0x02}, Hash: "0xabc"}, nil)
	// Cancellation can arrive after the payload hit the wire; it does
	// not prove the transaction never entered a mempool.
	f.broadcaster.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("send raw transaction: %w", context.Canceled))
	f.reader.EXPECT().TransactionKnown(gomock.Any(), "0xabc").Return(true, nil)
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.Request) (*model.Request, error) {
			return req, nil
		})

	req, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", req.Hash)
	assert.Empty(t, f.alloc.Outstanding())
}

func TestSubmitJournalsBroadcastBeforeCreate(t *testing.T) {
	f := newSubmitterFixture(t, 3)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().Estimate(gomock.Any(), model.ChainEthereum, nil).Return(testFees(), nil)
	f.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(model.SignedTx{Raw: []byte{0x02}, Hash: "0xabc"}, nil)
	f.broadcaster.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("0xabc", nil)
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	var serr *StorageError
	require.ErrorAs(t, err, &serr)

	// The journal entry landed even though Create did not: a crash here
	// leaves a trail recovery can rebuild the row from.
	require.Len(t, f.journal.events, 1)
	ev := f.journal.events[0]
	assert.Equal(t, redisstore.EventBroadcast, ev.Type)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, uint64(3), ev.Nonce)
	assert.Equal(t, "0xabc", ev.Hash)
	require.NotNil(t, ev.Tx)
	assert.Equal(t, testAddress, ev.Tx.To)
}

func TestSubmitStorageFailureCommitsNonceAndReconciles(t *testing.T) {
	f := newSubmitterFixture(t, 0)
	ctx := context.Background()

	f.expectNew("req-1")
	f.fees.EXPECT().Estimate(gomock.Any(), model.ChainEthereum, nil).Return(testFees(), nil)
	f.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return(model.SignedTx{Raw: []byte{0x02}, Hash: "0xabc"}, nil)
	f.broadcaster.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("0xabc", nil)
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	var serr *StorageError
	require.ErrorAs(t, err, &serr)

	// The transaction is on the network: the nonce is spent and must
	// not be reissued to anyone, including the same id.
	assert.Empty(t, f.alloc.Outstanding())
	n, err := f.alloc.Reserve(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	// The reconciler re-persists the record once storage recovers.
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.Request) (*model.Request, error) {
			assert.Equal(t, "req-1", req.ID)
			assert.Equal(t, uint64(0), req.Nonce)
			assert.Equal(t, "0xabc", req.Hash)
			return req, nil
		})
	f.submitter.flushUnrecorded(ctx)
}

func TestFlushUnrecordedRequeuesOnFailure(t *testing.T) {
	f := newSubmitterFixture(t, 0)
	ctx := context.Background()

	req := &model.Request{ID: "req-1", Chain: model.ChainEthereum, Hash: "0xabc"}
	f.submitter.queueUnrecorded(req)

	f.repo.EXPECT().Create(gomock.Any(), req).Return(nil, errors.New("still down"))
	f.submitter.flushUnrecorded(ctx)

	f.repo.EXPECT().Create(gomock.Any(), req).Return(req, nil)
	f.submitter.flushUnrecorded(ctx)

	// Queue drained; nothing left to retry.
	f.submitter.flushUnrecorded(ctx)
}

func TestSubmitLookupFailureIsStorageError(t *testing.T) {
	f := newSubmitterFixture(t, 0)
	ctx := context.Background()

	f.repo.EXPECT().Get(gomock.Any(), "req-1").Return(nil, errors.New("db down"))

	_, err := f.submitter.Submit(ctx, model.Intent{ID: "req-1", To: testAddress})
	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.Empty(t, f.alloc.Outstanding())
}
