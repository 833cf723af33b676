package resolver

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/chain"
	"github.com/stretchr/testify/require"
)

func withdrawEvent(builder common.Address, amount int64, block uint64, reason string) *chain.WithdrawEvent {
	return &chain.WithdrawEvent{
		Builder:        builder,
		Amount:         big.NewInt(amount),
		Reason:         reason,
		BlockNumber:    block,
		BlockTimestamp: 1_700_000_000 + 12*block,
		TxHash:         common.BigToHash(big.NewInt(int64(block))),
	}
}

func TestAggregate(t *testing.T) {
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	gone := common.HexToAddress("0x0c")

	data := []chain.BuilderData{
		{BuilderAddress: b, Cap: big.NewInt(100), UnlockedAmount: big.NewInt(40)},
		{BuilderAddress: a, Cap: big.NewInt(50), UnlockedAmount: big.NewInt(5)},
	}
	withdrawals := []*chain.WithdrawEvent{
		withdrawEvent(a, 3, 10, "first"),
		withdrawEvent(gone, 7, 11, "before removal"),
		withdrawEvent(a, 4, 12, "second"),
	}

	builders, contributions := Aggregate([]common.Address{a, b}, data, withdrawals)
	require.Len(t, builders, 2)

	require.Equal(t, a.Hex(), builders[0].Address)
	require.Equal(t, "50", builders[0].CapWei)
	require.Equal(t, "5", builders[0].UnlockedWei)
	require.Equal(t, "7", builders[0].TotalWithdrawnWei)
	require.Len(t, builders[0].Withdrawals, 2)
	require.Equal(t, "second", builders[0].Withdrawals[0].Reason)

	require.Equal(t, "0", builders[1].TotalWithdrawnWei)
	require.NotNil(t, builders[1].Withdrawals)
	require.Empty(t, builders[1].Withdrawals)

	// all withdrawals, newest first, including the builder that is no longer eligible
	require.Len(t, contributions, 3)
	require.Equal(t, uint64(12), contributions[0].BlockNumber)
	require.Equal(t, gone.Hex(), contributions[1].Builder)
	require.False(t, contributions[1].Eligible)
	require.True(t, contributions[0].Eligible)
	require.Equal(t, int64(1_700_000_000+12*12), contributions[0].Timestamp.Unix())
}

func TestAggregateMissingBuilderData(t *testing.T) {
	a := common.HexToAddress("0x0a")
	builders, contributions := Aggregate([]common.Address{a}, nil, nil)
	require.Len(t, builders, 1)
	require.Equal(t, "0", builders[0].CapWei)
	require.Equal(t, "0", builders[0].UnlockedWei)
	require.Equal(t, "0", builders[0].TotalWithdrawnWei)
	require.False(t, builders[0].DataLoaded)
	require.Empty(t, contributions)
}

func TestIsEligibleBuilder(t *testing.T) {
	a := common.HexToAddress("0xAbCdEf0000000000000000000000000000000001")
	builders, _ := Aggregate([]common.Address{a}, nil, nil)
	snapshot := &Snapshot{Builders: builders}

	require.True(t, snapshot.IsEligibleBuilder(a.Hex()))
	require.True(t, snapshot.IsEligibleBuilder("0xabcdef0000000000000000000000000000000001"))
	require.False(t, snapshot.IsEligibleBuilder("0x0000000000000000000000000000000000000002"))
	require.False(t, snapshot.IsEligibleBuilder(""))
	require.False(t, snapshot.IsEligibleBuilder("not-an-address"))

	var empty *Snapshot
	require.False(t, empty.IsEligibleBuilder(a.Hex()))
	require.False(t, (&Snapshot{}).IsEligibleBuilder(""))
}

func TestWithdrawalsOf(t *testing.T) {
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	_, contributions := Aggregate(nil, nil, []*chain.WithdrawEvent{
		withdrawEvent(a, 1, 1, ""),
		withdrawEvent(b, 1, 2, ""),
		withdrawEvent(a, 1, 3, ""),
	})
	snapshot := &Snapshot{Contributions: contributions}
	require.Len(t, snapshot.WithdrawalsOf(a.Hex()), 2)
	require.Len(t, snapshot.WithdrawalsOf(""), 0)
}
