package database

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/chain"
)

func AddBuilderEventToEntry(e *chain.AddBuilderEvent) *AddBuilderEventEntry {
	return &AddBuilderEventEntry{
		BlockNumber:    e.BlockNumber,
		TxHash:         e.TxHash.Hex(),
		LogIndex:       uint64(e.LogIndex),
		BuilderAddress: e.To.Hex(),
		AmountWei:      bigToString(e.Amount),
	}
}

func WithdrawEventToEntry(e *chain.WithdrawEvent) *WithdrawEventEntry {
	return &WithdrawEventEntry{
		BlockNumber:    e.BlockNumber,
		BlockTimestamp: e.BlockTimestamp,
		TxHash:         e.TxHash.Hex(),
		LogIndex:       uint64(e.LogIndex),
		BuilderAddress: e.Builder.Hex(),
		AmountWei:      bigToString(e.Amount),
		Reason:         e.Reason,
	}
}

func (entry *AddBuilderEventEntry) ToEvent() (*chain.AddBuilderEvent, error) {
	amount, err := stringToBig(entry.AmountWei)
	if err != nil {
		return nil, fmt.Errorf("add_builder event %s/%d: %w", entry.TxHash, entry.LogIndex, err)
	}
	return &chain.AddBuilderEvent{
		To:          common.HexToAddress(entry.BuilderAddress),
		Amount:      amount,
		BlockNumber: entry.BlockNumber,
		TxHash:      common.HexToHash(entry.TxHash),
		LogIndex:    uint(entry.LogIndex),
	}, nil
}

func (entry *WithdrawEventEntry) ToEvent() (*chain.WithdrawEvent, error) {
	amount, err := stringToBig(entry.AmountWei)
	if err != nil {
		return nil, fmt.Errorf("withdraw event %s/%d: %w", entry.TxHash, entry.LogIndex, err)
	}
	return &chain.WithdrawEvent{
		Builder:        common.HexToAddress(entry.BuilderAddress),
		Amount:         amount,
		Reason:         entry.Reason,
		BlockNumber:    entry.BlockNumber,
		BlockTimestamp: entry.BlockTimestamp,
		TxHash:         common.HexToHash(entry.TxHash),
		LogIndex:       uint(entry.LogIndex),
	}, nil
}

func bigToString(b *big.Int) string {
	if b == nil {
		return "0"
	}
	return b.String()
}

func stringToBig(s string) (*big.Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid wei amount %q", s)
	}
	return b, nil
}
