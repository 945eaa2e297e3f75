package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/emperorhan/tx-relayer/internal/alert"
	"github.com/emperorhan/tx-relayer/internal/chain"
	chainmocks "github.com/emperorhan/tx-relayer/internal/chain/mocks"
	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/nonce"
	"github.com/emperorhan/tx-relayer/internal/store"
	storemocks "github.com/emperorhan/tx-relayer/internal/store/mocks"
	redisstore "github.com/emperorhan/tx-relayer/internal/store/redis"
)

type recoveryFixture struct {
	repo     *storemocks.MockRequestRepository
	reader   *chainmocks.MockChainReader
	alloc    *nonce.Allocator
	journal  *memoryJournal
	alerter  *recordingAlerter
	recovery *Recovery
}

func newRecoveryFixture(t *testing.T) *recoveryFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &recoveryFixture{
		repo:    storemocks.NewMockRequestRepository(ctrl),
		reader:  chainmocks.NewMockChainReader(ctrl),
		alloc:   nonce.NewAllocator(model.ChainEthereum),
		journal: &memoryJournal{},
		alerter: &recordingAlerter{},
	}
	f.recovery = NewRecovery(
		model.ChainEthereum, testAddress,
		f.repo, f.reader, f.alloc, f.journal, f.alerter, testLogger(),
	)
	return f
}

func (f *recoveryFixture) nextReserved(t *testing.T) uint64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := f.alloc.Reserve(ctx, "probe")
	require.NoError(t, err)
	return n
}

func TestRecoveryClassifiesUnresolvedRequests(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()

	// Nonces 5, 6, 7 outstanding; the chain has consumed up to nonce 7
	// (confirmed nonce is the next free one). Request 5 has a receipt,
	// request 6 does not but its nonce is consumed, request 7 is still
	// waiting in the mempool.
	mined := pendingRequest("req-5", 5, "0xaaa", time.Now())
	lost := pendingRequest("req-6", 6, "0xbbb", time.Now())
	waiting := pendingRequest("req-7", 7, "0xccc", time.Now())

	f.reader.EXPECT().ConfirmedNonce(gomock.Any(), testAddress).Return(uint64(7), nil)
	f.repo.EXPECT().ListUnresolved(gomock.Any(), model.ChainEthereum).
		Return([]*model.Request{mined, lost, waiting}, nil)

	f.reader.EXPECT().Receipt(gomock.Any(), "0xaaa").
		Return(&chain.Receipt{TxHash: "0xaaa", BlockNumber: 90, Success: true}, nil)
	f.repo.EXPECT().MarkMined(gomock.Any(), "req-5").Return(nil)

	f.reader.EXPECT().Receipt(gomock.Any(), "0xbbb").Return(nil, nil)
	f.repo.EXPECT().MarkSuperseded(gomock.Any(), "req-6").Return(nil)

	f.reader.EXPECT().Receipt(gomock.Any(), "0xccc").Return(nil, nil)

	f.repo.EXPECT().HighestNonce(gomock.Any(), model.ChainEthereum).Return(uint64(7), true, nil)

	require.NoError(t, f.recovery.Run(ctx))

	// Seed is max(confirmed, highest persisted + 1) = 8.
	assert.Equal(t, uint64(8), f.nextReserved(t))

	require.Len(t, f.alerter.sent, 1)
	assert.Equal(t, alert.AlertTypeSuperseded, f.alerter.sent[0].Type)
	assert.Equal(t, "req-6", f.alerter.sent[0].RequestID)
}

func TestRecoverySeedsFromChainOnEmptyStore(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()

	f.reader.EXPECT().ConfirmedNonce(gomock.Any(), testAddress).Return(uint64(42), nil)
	f.repo.EXPECT().ListUnresolved(gomock.Any(), model.ChainEthereum).Return(nil, nil)
	f.repo.EXPECT().HighestNonce(gomock.Any(), model.ChainEthereum).Return(uint64(0), false, nil)

	require.NoError(t, f.recovery.Run(ctx))
	assert.Equal(t, uint64(42), f.nextReserved(t))
}

func TestRecoverySeedsPastPersistedNonces(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()

	// The store knows about a broadcast the chain has not confirmed yet:
	// the chain's nonce lags the highest persisted one.
	waiting := pendingRequest("req-9", 9, "0xccc", time.Now())

	f.reader.EXPECT().ConfirmedNonce(gomock.Any(), testAddress).Return(uint64(9), nil)
	f.repo.EXPECT().ListUnresolved(gomock.Any(), model.ChainEthereum).
		Return([]*model.Request{waiting}, nil)
	f.reader.EXPECT().Receipt(gomock.Any(), "0xccc").Return(nil, nil)
	f.repo.EXPECT().HighestNonce(gomock.Any(), model.ChainEthereum).Return(uint64(9), true, nil)

	require.NoError(t, f.recovery.Run(ctx))
	assert.Equal(t, uint64(10), f.nextReserved(t))
}

func TestRecoveryReplaysJournaledBroadcasts(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()

	// The process died between broadcasting nonce 3 and writing its row.
	// The journal is the only trace; recovery must rebuild the row so
	// the allocator does not reissue an in-mempool nonce.
	recordedEnv := model.Envelope{Chain: model.ChainEthereum, Nonce: 2, To: testAddress, Value: "1", Fees: testFees()}
	lostEnv := model.Envelope{Chain: model.ChainEthereum, Nonce: 3, To: testAddress, Value: "1", Fees: testFees()}
	f.journal.events = []redisstore.Event{
		{Type: redisstore.EventBroadcast, RequestID: "req-2", Chain: model.ChainEthereum, Nonce: 2, Hash: "0xbbb", Tx: &recordedEnv},
		{Type: redisstore.EventBroadcast, RequestID: "req-3", Chain: model.ChainEthereum, Nonce: 3, Hash: "0xccc", Tx: &lostEnv},
	}

	f.reader.EXPECT().ConfirmedNonce(gomock.Any(), testAddress).Return(uint64(3), nil)

	// req-2 made it into the store before the crash; only req-3 is rebuilt.
	f.repo.EXPECT().Get(gomock.Any(), "req-2").
		Return(pendingRequest("req-2", 2, "0xbbb", time.Now()), nil)
	f.repo.EXPECT().Get(gomock.Any(), "req-3").Return(nil, store.ErrNotFound)
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.Request) (*model.Request, error) {
			assert.Equal(t, "req-3", req.ID)
			assert.Equal(t, uint64(3), req.Nonce)
			assert.Equal(t, "0xccc", req.Hash)
			assert.Equal(t, testAddress, req.Tx.To)
			return req, nil
		})

	rebuilt := pendingRequest("req-3", 3, "0xccc", time.Now())
	f.repo.EXPECT().ListUnresolved(gomock.Any(), model.ChainEthereum).
		Return([]*model.Request{rebuilt}, nil)
	f.reader.EXPECT().Receipt(gomock.Any(), "0xccc").Return(nil, nil)
	f.repo.EXPECT().HighestNonce(gomock.Any(), model.ChainEthereum).Return(uint64(3), true, nil)

	require.NoError(t, f.recovery.Run(ctx))

	// Seeded past the rebuilt row: the in-mempool nonce is not reissued.
	assert.Equal(t, uint64(4), f.nextReserved(t))
}

func TestRecoveryFailsOnUnreachableChain(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()

	f.reader.EXPECT().ConfirmedNonce(gomock.Any(), testAddress).
		Return(uint64(0), errors.New("rpc unreachable"))

	err := f.recovery.Run(ctx)
	require.Error(t, err)

	// The allocator stays blocked: no nonce can be handed out against
	// unreconciled state.
	reserveCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = f.alloc.Reserve(reserveCtx, "req-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecoveryFailsOnReceiptError(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()

	req := pendingRequest("req-5", 5, "0xaaa", time.Now())

	f.reader.EXPECT().ConfirmedNonce(gomock.Any(), testAddress).Return(uint64(6), nil)
	f.repo.EXPECT().ListUnresolved(gomock.Any(), model.ChainEthereum).
		Return([]*model.Request{req}, nil)
	f.reader.EXPECT().Receipt(gomock.Any(), "0xaaa").Return(nil, errors.New("rpc unreachable"))

	require.Error(t, f.recovery.Run(ctx))
}
