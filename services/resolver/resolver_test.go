package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/chain"
	scommon "github.com/flashbots/streamscan/common"
	"github.com/stretchr/testify/require"
)

const (
	defaultWait = 2 * time.Second
	defaultTick = 5 * time.Millisecond
)

var testLog = scommon.LogSetup(false, "error", false)

// gatedReader holds reads of one address until gate is closed
type gatedReader struct {
	*fakeCapReader
	slow    common.Address
	gate    chan struct{}
	reached chan struct{}
}

func (g *gatedReader) StreamedBuilder(ctx context.Context, builder common.Address) (*chain.BuilderStreamInfo, error) {
	if builder == g.slow {
		close(g.reached)
		<-g.gate
	}
	return g.fakeCapReader.StreamedBuilder(ctx, builder)
}

func TestResolverStates(t *testing.T) {
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	reader := &fakeCapReader{caps: map[common.Address]int64{a: 0, b: 100}}
	r := NewResolver(&ResolverOpts{Log: testLog, Reader: reader})

	require.Equal(t, StateIdle, r.State())
	require.Nil(t, r.Current())

	cycle, ran := r.MaybeResolve(context.Background(), nil)
	require.True(t, ran)
	require.Equal(t, StateResolvedEmpty, r.State())
	require.Empty(t, cycle.Eligible)
	require.Equal(t, int64(0), reader.calls.Load())

	events := addBuilderEvents(1, a)
	cycle, ran = r.MaybeResolve(context.Background(), events)
	require.True(t, ran)
	require.Equal(t, StateResolvedEmpty, r.State())
	require.Empty(t, cycle.Eligible)

	events = append(events, addBuilderEvents(2, b)[0])
	cycle, ran = r.MaybeResolve(context.Background(), events)
	require.True(t, ran)
	require.Equal(t, StateResolved, r.State())
	require.Equal(t, []common.Address{b}, cycle.Eligible)
	require.Equal(t, uint64(3), cycle.Seq)
}

func TestResolverOnlyRunsOnChangedEvents(t *testing.T) {
	a := common.HexToAddress("0x0a")
	reader := &fakeCapReader{caps: map[common.Address]int64{a: 10}}
	r := NewResolver(&ResolverOpts{Log: testLog, Reader: reader})

	events := addBuilderEvents(1, a)
	first, ran := r.MaybeResolve(context.Background(), events)
	require.True(t, ran)
	require.Equal(t, int64(1), reader.calls.Load())

	for i := 0; i < 5; i++ {
		cycle, ran := r.MaybeResolve(context.Background(), events)
		require.False(t, ran)
		require.Same(t, first, cycle)
	}
	require.Equal(t, int64(1), reader.calls.Load())

	// a re-addition of the same builder is a new event and triggers a cycle
	events = append(events, &chain.AddBuilderEvent{To: a, BlockNumber: 7})
	cycle, ran := r.MaybeResolve(context.Background(), events)
	require.True(t, ran)
	require.Equal(t, uint64(2), cycle.Seq)
	require.Equal(t, int64(2), reader.calls.Load())
}

func TestResolverDiscardsStaleCycle(t *testing.T) {
	slow := common.HexToAddress("0x51")
	fast := common.HexToAddress("0xfa")
	reader := &gatedReader{
		fakeCapReader: &fakeCapReader{caps: map[common.Address]int64{slow: 1, fast: 1}},
		slow:          slow,
		gate:          make(chan struct{}),
		reached:       make(chan struct{}),
	}
	r := NewResolver(&ResolverOpts{Log: testLog, Reader: reader})

	type outcome struct {
		cycle   *Cycle
		applied bool
	}
	staleDone := make(chan outcome)
	go func() {
		cycle, applied := r.Resolve(context.Background(), addBuilderEvents(1, slow))
		staleDone <- outcome{cycle, applied}
	}()
	<-reader.reached
	require.Equal(t, StateResolving, r.State())

	newer, applied := r.Resolve(context.Background(), addBuilderEvents(1, fast))
	require.True(t, applied)
	require.Equal(t, uint64(2), newer.Seq)

	close(reader.gate)
	stale := <-staleDone
	require.False(t, stale.applied)
	require.Equal(t, uint64(1), stale.cycle.Seq)

	require.Same(t, newer, r.Current())
	require.Equal(t, []common.Address{fast}, r.Current().Eligible)
	require.Equal(t, StateResolved, r.State())
}

func TestResolverKeepPreviousPolicy(t *testing.T) {
	a := common.HexToAddress("0x0a")
	reader := &fakeCapReader{caps: map[common.Address]int64{a: 10}}
	r := NewResolver(&ResolverOpts{Log: testLog, Reader: reader, UnknownPolicy: UnknownKeepPrevious})

	events := addBuilderEvents(1, a)
	cycle, _ := r.MaybeResolve(context.Background(), events)
	require.Equal(t, []common.Address{a}, cycle.Eligible)

	b := common.HexToAddress("0x0b")
	reader.caps[b] = 0
	reader.errs = map[common.Address]error{a: errNetwork}
	events = append(events, &chain.AddBuilderEvent{To: b, BlockNumber: 2})
	cycle, _ = r.MaybeResolve(context.Background(), events)
	require.Equal(t, []common.Address{a}, cycle.Eligible)
	require.Equal(t, 1, cycle.Result.Count(Unknown))
}
