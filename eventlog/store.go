// Package eventlog keeps a local copy of the contract's event history and syncs it incrementally
package eventlog

import (
	"context"
	"sync"

	"github.com/flashbots/streamscan/chain"
)

// Store persists fetched events together with the last block they cover, so the next sync
// only needs the blocks after it.
//
// The save methods replace every stored event in [fromBlock, lastBlock] with the given events,
// so a re-fetched range drops logs that were removed by a reorg.
type Store interface {
	// Cursor returns the last synced block for an event, ok=false if never synced
	Cursor(ctx context.Context, eventName string) (lastBlock uint64, ok bool, err error)
	SaveAddBuilderEvents(ctx context.Context, events []*chain.AddBuilderEvent, fromBlock, lastBlock uint64) error
	SaveWithdrawEvents(ctx context.Context, events []*chain.WithdrawEvent, fromBlock, lastBlock uint64) error
	AddBuilderEvents(ctx context.Context) ([]*chain.AddBuilderEvent, error)
	WithdrawEvents(ctx context.Context) ([]*chain.WithdrawEvent, error)
}

type eventKey struct {
	txHash   string
	logIndex uint
}

// MemoryStore is the default store, rebuilt from the chain on every process start
type MemoryStore struct {
	lock       sync.RWMutex
	cursors    map[string]uint64
	addBuilder []*chain.AddBuilderEvent
	withdraw   []*chain.WithdrawEvent
	seen       map[eventKey]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cursors: make(map[string]uint64),
		seen:    make(map[eventKey]bool),
	}
}

func (s *MemoryStore) Cursor(ctx context.Context, eventName string) (uint64, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	lastBlock, ok := s.cursors[eventName]
	return lastBlock, ok, nil
}

func (s *MemoryStore) SaveAddBuilderEvents(ctx context.Context, events []*chain.AddBuilderEvent, fromBlock, lastBlock uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	kept := s.addBuilder[:0]
	for _, e := range s.addBuilder {
		if e.BlockNumber >= fromBlock && e.BlockNumber <= lastBlock {
			delete(s.seen, eventKey{e.TxHash.Hex(), e.LogIndex})
			continue
		}
		kept = append(kept, e)
	}
	s.addBuilder = kept

	for _, e := range events {
		key := eventKey{e.TxHash.Hex(), e.LogIndex}
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.addBuilder = append(s.addBuilder, e)
	}
	s.cursors[addBuilderCursor] = lastBlock
	return nil
}

func (s *MemoryStore) SaveWithdrawEvents(ctx context.Context, events []*chain.WithdrawEvent, fromBlock, lastBlock uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	kept := s.withdraw[:0]
	for _, e := range s.withdraw {
		if e.BlockNumber >= fromBlock && e.BlockNumber <= lastBlock {
			delete(s.seen, eventKey{e.TxHash.Hex(), e.LogIndex})
			continue
		}
		kept = append(kept, e)
	}
	s.withdraw = kept

	for _, e := range events {
		key := eventKey{e.TxHash.Hex(), e.LogIndex}
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.withdraw = append(s.withdraw, e)
	}
	s.cursors[withdrawCursor] = lastBlock
	return nil
}

func (s *MemoryStore) AddBuilderEvents(ctx context.Context) ([]*chain.AddBuilderEvent, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]*chain.AddBuilderEvent, len(s.addBuilder))
	copy(out, s.addBuilder)
	return out, nil
}

func (s *MemoryStore) WithdrawEvents(ctx context.Context) ([]*chain.WithdrawEvent, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]*chain.WithdrawEvent, len(s.withdraw))
	copy(out, s.withdraw)
	return out, nil
}
