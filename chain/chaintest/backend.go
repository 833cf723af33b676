// Package chaintest provides an in-memory chain backend serving the stream contract
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/contracts"
	uberatomic "go.uber.org/atomic"
)

const ContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

var ErrRangeTooLarge = errors.New("query returned more than 10000 results")

type Backend struct {
	Contract *contracts.Contract

	// MaxRange makes FilterLogs fail for wider block ranges, like hosted providers do
	MaxRange uint64

	FilterLogsErr error

	FilterCalls   uberatomic.Int64
	CapReadCalls  uberatomic.Int64
	BatchedCalls  uberatomic.Int64
	BlockNumCalls uberatomic.Int64

	lock       sync.Mutex
	head       uint64
	logs       []types.Log
	caps       map[ethcommon.Address]*big.Int
	unlocked   map[ethcommon.Address]*big.Int
	callErrors map[ethcommon.Address]error
	emptyCalls map[ethcommon.Address]bool
	nextIndex  map[uint64]uint
}

func NewBackend() *Backend {
	dir, err := contracts.NewStreamDirectory("YourContract", ContractAddress, 0)
	if err != nil {
		panic(err)
	}
	contract, err := dir.Stream("YourContract")
	if err != nil {
		panic(err)
	}
	return &Backend{
		Contract:   contract,
		caps:       make(map[ethcommon.Address]*big.Int),
		unlocked:   make(map[ethcommon.Address]*big.Int),
		callErrors: make(map[ethcommon.Address]error),
		emptyCalls: make(map[ethcommon.Address]bool),
		nextIndex:  make(map[uint64]uint),
	}
}

func (b *Backend) SetHead(head uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.head = head
}

func (b *Backend) SetCap(builder ethcommon.Address, capWei int64) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.caps[builder] = big.NewInt(capWei)
}

func (b *Backend) SetUnlocked(builder ethcommon.Address, unlockedWei int64) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.unlocked[builder] = big.NewInt(unlockedWei)
}

// SetCallError makes the streamedBuilders read for this builder fail
func (b *Backend) SetCallError(builder ethcommon.Address, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.callErrors[builder] = err
}

// SetEmptyResponse makes the streamedBuilders read for this builder return no data
func (b *Backend) SetEmptyResponse(builder ethcommon.Address) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.emptyCalls[builder] = true
}

func (b *Backend) AddBuilder(builder ethcommon.Address, amountWei int64, blockNumber uint64) {
	event := b.Contract.ABI.Events[contracts.EventAddBuilder]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(amountWei))
	if err != nil {
		panic(err)
	}
	b.addLog(event.ID, builder, data, blockNumber)
}

func (b *Backend) Withdraw(builder ethcommon.Address, amountWei int64, reason string, blockNumber uint64) {
	event := b.Contract.ABI.Events[contracts.EventWithdraw]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(amountWei), reason)
	if err != nil {
		panic(err)
	}
	b.addLog(event.ID, builder, data, blockNumber)
}

func (b *Backend) addLog(topic ethcommon.Hash, builder ethcommon.Address, data []byte, blockNumber uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()
	index := b.nextIndex[blockNumber]
	b.nextIndex[blockNumber]++
	b.logs = append(b.logs, types.Log{
		Address:     b.Contract.Address,
		Topics:      []ethcommon.Hash{topic, ethcommon.BytesToHash(builder.Bytes())},
		Data:        data,
		BlockNumber: blockNumber,
		BlockHash:   ethcommon.BigToHash(new(big.Int).SetUint64(blockNumber)),
		TxHash:      ethcommon.BigToHash(new(big.Int).SetUint64(blockNumber*1000 + uint64(index))),
		Index:       index,
	})
	if blockNumber > b.head {
		b.head = blockNumber
	}
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.BlockNumCalls.Inc()
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.head, nil
}

func (b *Backend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	b.FilterCalls.Inc()
	if b.FilterLogsErr != nil {
		return nil, b.FilterLogsErr
	}

	from, to := query.FromBlock.Uint64(), query.ToBlock.Uint64()
	if b.MaxRange > 0 && to-from+1 > b.MaxRange {
		return nil, ErrRangeTooLarge
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	result := []types.Log{}
	for _, l := range b.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if len(query.Addresses) > 0 && query.Addresses[0] != l.Address {
			continue
		}
		if len(query.Topics) > 0 && len(query.Topics[0]) > 0 && query.Topics[0][0] != l.Topics[0] {
			continue
		}
		result = append(result, l)
	}
	// reversed, so callers must sort
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil || *msg.To != b.Contract.Address {
		return []byte{}, nil
	}
	method, err := b.Contract.ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	switch method.Name {
	case contracts.FuncStreamedBuilders:
		b.CapReadCalls.Inc()
		builder := args[0].(ethcommon.Address)
		if err := b.callErrors[builder]; err != nil {
			return nil, err
		}
		if b.emptyCalls[builder] {
			return []byte{}, nil
		}
		return method.Outputs.Pack(b.capOf(builder), big.NewInt(0))
	case contracts.FuncAllBuildersData:
		b.BatchedCalls.Inc()
		builders := args[0].([]ethcommon.Address)
		data := make([]chain.BuilderData, len(builders))
		for i, builder := range builders {
			data[i] = chain.BuilderData{
				BuilderAddress: builder,
				Cap:            b.capOf(builder),
				UnlockedAmount: b.unlockedOf(builder),
			}
		}
		return method.Outputs.Pack(data)
	}
	return nil, fmt.Errorf("chaintest: unsupported method %s", method.Name)
}

func (b *Backend) capOf(builder ethcommon.Address) *big.Int {
	if c, ok := b.caps[builder]; ok {
		return c
	}
	return big.NewInt(0)
}

func (b *Backend) unlockedOf(builder ethcommon.Address) *big.Int {
	if u, ok := b.unlocked[builder]; ok {
		return u
	}
	return big.NewInt(0)
}

// BlockTimes returns 1_700_000_000 + 12 * blockNumber
type BlockTimes struct {
	Calls uberatomic.Int64
}

func (b *BlockTimes) BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	b.Calls.Inc()
	return 1_700_000_000 + 12*blockNumber, nil
}

func Address(i int) ethcommon.Address {
	return ethcommon.BigToAddress(big.NewInt(int64(0x1000 + i)))
}

// Reorg drops all logs at and above blockNumber, like a reorg replacing those blocks with empty ones
func (b *Backend) Reorg(blockNumber uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()
	kept := b.logs[:0]
	for _, l := range b.logs {
		if l.BlockNumber < blockNumber {
			kept = append(kept, l)
		}
	}
	b.logs = kept
	for n := range b.nextIndex {
		if n >= blockNumber {
			delete(b.nextIndex, n)
		}
	}
}
