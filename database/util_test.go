package database

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/chain"
	"github.com/stretchr/testify/require"
)

func TestWithdrawEventEntryConversion(t *testing.T) {
	amount, _ := new(big.Int).SetString("1500000000000000000000", 10)
	event := &chain.WithdrawEvent{
		Builder:        common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Amount:         amount,
		Reason:         "PR #12 merged",
		BlockNumber:    123,
		BlockTimestamp: 1700000000,
		TxHash:         common.HexToHash("0x01"),
		LogIndex:       4,
	}

	entry := WithdrawEventToEntry(event)
	require.Equal(t, "1500000000000000000000", entry.AmountWei)

	converted, err := entry.ToEvent()
	require.NoError(t, err)
	require.Equal(t, event, converted)
}

func TestAddBuilderEventEntryNilAmount(t *testing.T) {
	entry := AddBuilderEventToEntry(&chain.AddBuilderEvent{To: common.HexToAddress("0x01")})
	require.Equal(t, "0", entry.AmountWei)

	entry.AmountWei = "not-a-number"
	_, err := entry.ToEvent()
	require.Error(t, err)
}
