package chain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/chain/chaintest"
	"github.com/flashbots/streamscan/common"
	"github.com/flashbots/streamscan/contracts"
	"github.com/stretchr/testify/require"
)

var testLog = common.LogSetup(false, "error", false)

func newFetcher(backend *chaintest.Backend, maxRange uint64) *chain.EventFetcher {
	return chain.NewEventFetcher(&chain.EventFetcherOpts{
		Log:           testLog,
		Backend:       backend,
		BlockTimes:    &chaintest.BlockTimes{},
		MaxBlockRange: maxRange,
	})
}

func TestFetchEventsDecodesAndOrders(t *testing.T) {
	backend := chaintest.NewBackend()
	a, b := chaintest.Address(1), chaintest.Address(2)
	backend.AddBuilder(a, 100, 10)
	backend.AddBuilder(b, 200, 10)
	backend.AddBuilder(a, 300, 25)
	backend.Withdraw(a, 50, "shipped the indexer", 30)
	backend.SetHead(40)

	fetcher := newFetcher(backend, 0)
	events, head, err := fetcher.FetchEvents(context.Background(), backend.Contract, contracts.EventAddBuilder, 0, false)
	require.NoError(t, err)
	require.Equal(t, uint64(40), head)
	require.Len(t, events, 3)

	require.Equal(t, uint64(10), events[0].BlockNumber)
	require.Equal(t, uint(0), events[0].LogIndex)
	require.Equal(t, uint(1), events[1].LogIndex)
	require.Equal(t, uint64(25), events[2].BlockNumber)

	first, err := chain.ToAddBuilderEvent(events[0])
	require.NoError(t, err)
	require.Equal(t, a, first.To)
	require.Equal(t, int64(100), first.Amount.Int64())

	second, err := chain.ToAddBuilderEvent(events[1])
	require.NoError(t, err)
	require.Equal(t, b, second.To)
}

func TestFetchEventsWithBlockData(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.Withdraw(chaintest.Address(1), 50, "work", 30)

	events, _, err := newFetcher(backend, 0).FetchEvents(context.Background(), backend.Contract, contracts.EventWithdraw, 0, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, uint64(1_700_000_000+12*30), events[0].BlockTimestamp)

	withdraw, err := chain.ToWithdrawEvent(events[0])
	require.NoError(t, err)
	require.Equal(t, chaintest.Address(1), withdraw.Builder)
	require.Equal(t, "work", withdraw.Reason)
	require.Equal(t, int64(50), withdraw.Amount.Int64())
	require.Equal(t, int64(1_700_000_360), withdraw.Time().Unix())
}

func TestFetchEventsFromBlockAfterHead(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.SetHead(5)

	events, head, err := newFetcher(backend, 0).FetchEvents(context.Background(), backend.Contract, contracts.EventAddBuilder, 10, false)
	require.NoError(t, err)
	require.Equal(t, uint64(5), head)
	require.Empty(t, events)
	require.Equal(t, int64(0), backend.FilterCalls.Load())
}

func TestFetchEventRangeChunks(t *testing.T) {
	backend := chaintest.NewBackend()
	for i := 0; i < 10; i++ {
		backend.AddBuilder(chaintest.Address(i), 1, uint64(i*10))
	}
	backend.SetHead(99)

	events, err := newFetcher(backend, 25).FetchEventRange(context.Background(), backend.Contract, contracts.EventAddBuilder, 0, 99, false)
	require.NoError(t, err)
	require.Len(t, events, 10)
	require.Equal(t, int64(4), backend.FilterCalls.Load())
}

func TestFetchEventRangeHalvesOnProviderError(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.MaxRange = 30
	for i := 0; i < 10; i++ {
		backend.AddBuilder(chaintest.Address(i), 1, uint64(i*10))
	}

	events, err := newFetcher(backend, 100).FetchEventRange(context.Background(), backend.Contract, contracts.EventAddBuilder, 0, 99, false)
	require.NoError(t, err)
	require.Len(t, events, 10)
	for i := 1; i < len(events); i++ {
		require.Less(t, events[i-1].BlockNumber, events[i].BlockNumber)
	}
}

func TestFetchEventRangeFails(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.FilterLogsErr = errors.New("node down")

	_, err := newFetcher(backend, 4).FetchEventRange(context.Background(), backend.Contract, contracts.EventAddBuilder, 0, 3, false)
	require.Error(t, err)

	_, err = newFetcher(backend, 4).FetchEventRange(context.Background(), backend.Contract, "NoSuchEvent", 0, 3, false)
	require.ErrorIs(t, err, chain.ErrUnknownEvent)
}

func TestToAddBuilderEventMissingTo(t *testing.T) {
	_, err := chain.ToAddBuilderEvent(&chain.Event{Args: map[string]interface{}{}})
	require.ErrorIs(t, err, chain.ErrMalformedLog)

	_, err = chain.ToWithdrawEvent(&chain.Event{Args: map[string]interface{}{"to": chaintest.Address(1)}})
	require.ErrorIs(t, err, chain.ErrMalformedLog)
}
