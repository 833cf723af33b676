package eventlog

import (
	"context"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/chain/chaintest"
	"github.com/flashbots/streamscan/common"
	"github.com/stretchr/testify/require"
)

func newTestSyncer(backend *chaintest.Backend, confirmations uint64) *Syncer {
	log := common.LogSetup(false, "error", false)
	return NewSyncer(&SyncerOpts{
		Log: log,
		Fetcher: chain.NewEventFetcher(&chain.EventFetcherOpts{
			Log:        log,
			Backend:    backend,
			BlockTimes: &chaintest.BlockTimes{},
		}),
		Store:         NewMemoryStore(),
		Contract:      backend.Contract,
		Confirmations: confirmations,
		ReorgDepth:    DefaultReorgDepth,
	})
}

func TestSyncIsIncremental(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.AddBuilder(chaintest.Address(1), 100, 10)
	backend.Withdraw(chaintest.Address(1), 10, "first", 12)
	syncer := newTestSyncer(backend, 0)
	ctx := context.Background()

	res, err := syncer.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.NewAddBuilder)
	require.Equal(t, 1, res.NewWithdraw)
	require.Equal(t, uint64(12), res.Head)

	// nothing new
	res, err = syncer.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, res.NewAddBuilder)
	require.Equal(t, 0, res.NewWithdraw)

	backend.AddBuilder(chaintest.Address(2), 100, 20)
	filterCallsBefore := backend.FilterCalls.Load()
	res, err = syncer.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.NewAddBuilder)
	require.Equal(t, 0, res.NewWithdraw)
	require.Equal(t, filterCallsBefore+2, backend.FilterCalls.Load())

	events, err := syncer.Store().AddBuilderEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	withdrawals, err := syncer.Store().WithdrawEvents(ctx)
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	require.Equal(t, "first", withdrawals[0].Reason)
	require.NotZero(t, withdrawals[0].BlockTimestamp)

	cursor, ok, err := syncer.Store().Cursor(ctx, addBuilderCursor)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(20), cursor)
}

func TestSyncConfirmations(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.AddBuilder(chaintest.Address(1), 100, 10)
	backend.AddBuilder(chaintest.Address(2), 100, 18)
	backend.SetHead(20)
	syncer := newTestSyncer(backend, 5)

	numNew, head, err := syncer.SyncAddBuilder(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, numNew)
	require.Equal(t, uint64(15), head)
}

func TestSyncEmptyChain(t *testing.T) {
	backend := chaintest.NewBackend()
	syncer := newTestSyncer(backend, 0)

	res, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.NewAddBuilder)

	events, err := syncer.Store().AddBuilderEvents(context.Background())
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestMemoryStoreDeduplicatesEvents(t *testing.T) {
	store := NewMemoryStore()
	event := &chain.AddBuilderEvent{To: chaintest.Address(1), BlockNumber: 3, LogIndex: 1}
	require.NoError(t, store.SaveAddBuilderEvents(context.Background(), []*chain.AddBuilderEvent{event}, 0, 3))
	require.NoError(t, store.SaveAddBuilderEvents(context.Background(), []*chain.AddBuilderEvent{event}, 3, 4))

	events, err := store.AddBuilderEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	cursor, ok, err := store.Cursor(context.Background(), addBuilderCursor)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(4), cursor)
}

func TestSyncDropsReorgedEvents(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.AddBuilder(chaintest.Address(1), 100, 10)
	backend.Withdraw(chaintest.Address(1), 10, "kept", 12)
	backend.AddBuilder(chaintest.Address(2), 100, 20)
	backend.Withdraw(chaintest.Address(1), 20, "orphaned", 20)
	syncer := newTestSyncer(backend, 0)
	ctx := context.Background()

	_, err := syncer.Sync(ctx)
	require.NoError(t, err)
	withdrawals, err := syncer.Store().WithdrawEvents(ctx)
	require.NoError(t, err)
	require.Len(t, withdrawals, 2)

	// block 20 is replaced, the chain continues to 23
	backend.Reorg(20)
	backend.Withdraw(chaintest.Address(1), 30, "replacement", 22)
	backend.SetHead(23)

	res, err := syncer.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, res.NewAddBuilder)
	require.Equal(t, 1, res.NewWithdraw)

	withdrawals, err = syncer.Store().WithdrawEvents(ctx)
	require.NoError(t, err)
	require.Len(t, withdrawals, 2)
	require.Equal(t, "kept", withdrawals[0].Reason)
	require.Equal(t, "replacement", withdrawals[1].Reason)

	events, err := syncer.Store().AddBuilderEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, chaintest.Address(1), events[0].To)
}

func TestSyncReorgDepthLimitsRefetch(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.AddBuilder(chaintest.Address(1), 100, 10)
	backend.SetHead(100)
	syncer := newTestSyncer(backend, 0)
	ctx := context.Background()

	_, _, err := syncer.SyncAddBuilder(ctx)
	require.NoError(t, err)

	// older than the reorg depth, never fetched again
	backend.Reorg(10)
	backend.SetHead(101)
	_, _, err = syncer.SyncAddBuilder(ctx)
	require.NoError(t, err)

	events, err := syncer.Store().AddBuilderEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestMemoryStoreReplacesRange(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	a := &chain.AddBuilderEvent{To: chaintest.Address(1), BlockNumber: 3}
	b := &chain.AddBuilderEvent{To: chaintest.Address(2), BlockNumber: 7, TxHash: ethcommon.HexToHash("0x7")}
	require.NoError(t, store.SaveAddBuilderEvents(ctx, []*chain.AddBuilderEvent{a, b}, 0, 8))
	require.NoError(t, store.SaveAddBuilderEvents(ctx, nil, 5, 9))

	events, err := store.AddBuilderEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, chaintest.Address(1), events[0].To)
}
