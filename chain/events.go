package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/contracts"
	"github.com/sirupsen/logrus"
)

const DefaultMaxBlockRange uint64 = 10_000

type EventFetcherOpts struct {
	Log           *logrus.Entry
	Backend       Backend
	BlockTimes    BlockTimeSource // optional, required for withBlockData
	MaxBlockRange uint64
}

// EventFetcher is the historical event log: it pulls all logs of one event name in block-range chunks
type EventFetcher struct {
	log           *logrus.Entry
	backend       Backend
	blockTimes    BlockTimeSource
	maxBlockRange uint64
}

func NewEventFetcher(opts *EventFetcherOpts) *EventFetcher {
	maxBlockRange := opts.MaxBlockRange
	if maxBlockRange == 0 {
		maxBlockRange = DefaultMaxBlockRange
	}
	return &EventFetcher{
		log:           opts.Log.WithField("service", "event-fetcher"),
		backend:       opts.Backend,
		blockTimes:    opts.BlockTimes,
		maxBlockRange: maxBlockRange,
	}
}

func (f *EventFetcher) Head(ctx context.Context) (uint64, error) {
	return f.backend.BlockNumber(ctx)
}

// FetchEvents returns all events from fromBlock to the current head, and the head it used
func (f *EventFetcher) FetchEvents(ctx context.Context, contract *contracts.Contract, eventName string, fromBlock uint64, withBlockData bool) (events []*Event, head uint64, err error) {
	head, err = f.backend.BlockNumber(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't get head block: %w", err)
	}
	if fromBlock > head {
		return []*Event{}, head, nil
	}
	events, err = f.FetchEventRange(ctx, contract, eventName, fromBlock, head, withBlockData)
	return events, head, err
}

// FetchEventRange returns events in [fromBlock, toBlock], ordered by (block, log index).
// A failing range is retried with half the chunk size until the chunk is a single block.
func (f *EventFetcher) FetchEventRange(ctx context.Context, contract *contracts.Contract, eventName string, fromBlock, toBlock uint64, withBlockData bool) ([]*Event, error) {
	event, ok := contract.ABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, eventName)
	}

	log := f.log.WithFields(logrus.Fields{
		"contract": contract.Name,
		"event":    eventName,
		"from":     fromBlock,
		"to":       toBlock,
	})

	events := make([]*Event, 0)
	if fromBlock > toBlock {
		return events, nil
	}

	chunk := toBlock - fromBlock + 1
	if chunk > f.maxBlockRange {
		chunk = f.maxBlockRange
	}

	for start := fromBlock; start <= toBlock; {
		end := start + chunk - 1
		if end > toBlock {
			end = toBlock
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []ethcommon.Address{contract.Address},
			Topics:    [][]ethcommon.Hash{{event.ID}},
		}
		logs, err := f.backend.FilterLogs(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if chunk > 1 {
				chunk /= 2
				log.WithError(err).Warnf("getLogs failed, retrying with chunk=%d blocks", chunk)
				continue
			}
			return nil, fmt.Errorf("getLogs %s [%d-%d]: %w", eventName, start, end, err)
		}

		for _, vLog := range logs {
			if vLog.Removed {
				continue
			}
			decoded, err := decodeLog(event, vLog)
			if err != nil {
				log.WithError(err).WithField("tx", vLog.TxHash.Hex()).Warn("skipping undecodable log")
				continue
			}
			events = append(events, decoded)
		}

		if end == toBlock {
			break
		}
		start = end + 1
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	if withBlockData && f.blockTimes != nil {
		for _, e := range events {
			ts, err := f.blockTimes.BlockTimestamp(ctx, e.BlockNumber)
			if err != nil {
				return nil, fmt.Errorf("couldn't get timestamp of block %d: %w", e.BlockNumber, err)
			}
			e.BlockTimestamp = ts
		}
	}

	log.WithField("numEvents", len(events)).Debug("fetched events")
	return events, nil
}
