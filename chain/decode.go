package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func decodeLog(event abi.Event, log types.Log) (*Event, error) {
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return nil, fmt.Errorf("%w: topic mismatch for %s", ErrMalformedLog, event.Name)
	}

	args := make(map[string]interface{})
	if err := event.Inputs.UnpackIntoMap(args, log.Data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedLog, err)
	}

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(log.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("%w: expected %d indexed topics, got %d", ErrMalformedLog, len(indexed), len(log.Topics)-1)
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedLog, err)
	}

	return &Event{
		Name:        event.Name,
		Args:        args,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}, nil
}

// ToAddBuilderEvent extracts the `to` argument. Events without a valid `to` are rejected.
func ToAddBuilderEvent(e *Event) (*AddBuilderEvent, error) {
	to, ok := e.Args["to"].(ethcommon.Address)
	if !ok {
		return nil, fmt.Errorf("%w: AddBuilder without `to`", ErrMalformedLog)
	}
	amount, _ := e.Args["amount"].(*big.Int)
	return &AddBuilderEvent{
		To:          to,
		Amount:      amount,
		BlockNumber: e.BlockNumber,
		TxHash:      e.TxHash,
		LogIndex:    e.LogIndex,
	}, nil
}

func ToWithdrawEvent(e *Event) (*WithdrawEvent, error) {
	to, ok := e.Args["to"].(ethcommon.Address)
	if !ok {
		return nil, fmt.Errorf("%w: Withdraw without `to`", ErrMalformedLog)
	}
	amount, ok := e.Args["amount"].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: Withdraw without `amount`", ErrMalformedLog)
	}
	reason, _ := e.Args["reason"].(string)
	return &WithdrawEvent{
		Builder:        to,
		Amount:         amount,
		Reason:         reason,
		BlockNumber:    e.BlockNumber,
		BlockTimestamp: e.BlockTimestamp,
		TxHash:         e.TxHash,
		LogIndex:       e.LogIndex,
	}, nil
}
