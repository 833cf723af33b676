package resolver

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/chain"
	"github.com/stretchr/testify/require"
)

func addBuilderEvents(blockAndAddr ...interface{}) []*chain.AddBuilderEvent {
	events := []*chain.AddBuilderEvent{}
	for i := 0; i < len(blockAndAddr); i += 2 {
		events = append(events, &chain.AddBuilderEvent{
			BlockNumber: uint64(blockAndAddr[i].(int)),
			To:          blockAndAddr[i+1].(common.Address),
			Amount:      big.NewInt(1),
			LogIndex:    uint(i / 2),
		})
	}
	return events
}

func TestResolveCandidates(t *testing.T) {
	a := common.HexToAddress("0xAbCdEf0000000000000000000000000000000001")
	b := common.HexToAddress("0x0000000000000000000000000000000000000002")
	aLower := common.HexToAddress("0xabcdef0000000000000000000000000000000001")

	testCases := []struct {
		name     string
		events   []*chain.AddBuilderEvent
		expected []common.Address
	}{
		{"not loaded", nil, []common.Address{}},
		{"empty", addBuilderEvents(), []common.Address{}},
		{"single", addBuilderEvents(1, a), []common.Address{a}},
		{"re-addition", addBuilderEvents(1, a, 2, b, 3, a), []common.Address{a, b}},
		{"case differences", addBuilderEvents(1, a, 2, aLower), []common.Address{a}},
		{"discovery order", addBuilderEvents(1, b, 2, a, 3, b, 4, a), []common.Address{b, a}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			candidates := ResolveCandidates(tc.events)
			require.Equal(t, tc.expected, candidates)
		})
	}
}

func TestResolveCandidatesCountsDistinctAddresses(t *testing.T) {
	events := []*chain.AddBuilderEvent{}
	for i := 0; i < 50; i++ {
		events = append(events, &chain.AddBuilderEvent{
			To:          common.BigToAddress(big.NewInt(int64(i % 7))),
			BlockNumber: uint64(i),
		})
	}
	require.Len(t, ResolveCandidates(events), 7)

	// resolving the candidate list again changes nothing
	again := make([]*chain.AddBuilderEvent, 0, 7)
	for _, addr := range ResolveCandidates(events) {
		again = append(again, &chain.AddBuilderEvent{To: addr})
	}
	require.Equal(t, ResolveCandidates(events), ResolveCandidates(again))
}

func TestFingerprintOf(t *testing.T) {
	a := common.HexToAddress("0x01")
	require.Equal(t, Fingerprint{}, FingerprintOf(nil))

	events := addBuilderEvents(5, a, 9, a)
	fp := FingerprintOf(events)
	require.Equal(t, 2, fp.Count)
	require.Equal(t, uint64(9), fp.LastBlock)
	require.Equal(t, uint(1), fp.LastLogIndex)
	require.NotEqual(t, common.Hash{}, fp.Hash)
	require.Equal(t, fp, FingerprintOf(addBuilderEvents(5, a, 9, a)))

	more := append(events, &chain.AddBuilderEvent{To: a, BlockNumber: 9, LogIndex: 4})
	require.NotEqual(t, fp, FingerprintOf(more))

	// same positions, the event at block 5 was replaced by a reorg
	b := common.HexToAddress("0x02")
	require.NotEqual(t, fp, FingerprintOf(addBuilderEvents(5, b, 9, a)))
}
