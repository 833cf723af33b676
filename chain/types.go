// Package chain reads historical events and live contract state from an execution node
package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrUnknownEvent      = errors.New("event not in contract abi")
	ErrEmptyResponse     = errors.New("empty response from contract call")
	ErrMalformedResponse = errors.New("malformed response from contract call")
	ErrMalformedLog      = errors.New("malformed event log")
)

// Backend is the subset of an execution client used here. common.EthNode implements it.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Event is a decoded contract log
type Event struct {
	Name        string
	Args        map[string]interface{}
	BlockNumber uint64
	BlockHash   ethcommon.Hash
	TxHash      ethcommon.Hash
	LogIndex    uint

	// BlockTimestamp is only set when block data was requested
	BlockTimestamp uint64
}

func (e *Event) Time() time.Time {
	return time.Unix(int64(e.BlockTimestamp), 0).UTC()
}

type AddBuilderEvent struct {
	To          ethcommon.Address
	Amount      *big.Int
	BlockNumber uint64
	TxHash      ethcommon.Hash
	LogIndex    uint
}

type WithdrawEvent struct {
	Builder        ethcommon.Address
	Amount         *big.Int
	Reason         string
	BlockNumber    uint64
	BlockTimestamp uint64
	TxHash         ethcommon.Hash
	LogIndex       uint
}

func (e *WithdrawEvent) Time() time.Time {
	return time.Unix(int64(e.BlockTimestamp), 0).UTC()
}

// BuilderStreamInfo is the contract's per-builder record
type BuilderStreamInfo struct {
	Cap  *big.Int
	Last *big.Int
}

// BuilderData is one entry of allBuildersData. Field order matches the solidity struct.
type BuilderData struct {
	BuilderAddress ethcommon.Address
	Cap            *big.Int
	UnlockedAmount *big.Int
}
