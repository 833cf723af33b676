package eventlog

import (
	"context"
	"fmt"

	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/contracts"
	"github.com/sirupsen/logrus"
)

const (
	addBuilderCursor = contracts.EventAddBuilder
	withdrawCursor   = contracts.EventWithdraw

	// DefaultReorgDepth is how many already synced blocks every sync fetches again
	DefaultReorgDepth = 12
)

type SyncerOpts struct {
	Log      *logrus.Entry
	Fetcher  *chain.EventFetcher
	Store    Store
	Contract *contracts.Contract

	// Confirmations keeps the sync this many blocks behind head
	Confirmations uint64

	// ReorgDepth re-fetches this many blocks below the cursor on every sync. Stored events in
	// that range which the node no longer returns are removed.
	ReorgDepth uint64
}

type Syncer struct {
	log           *logrus.Entry
	fetcher       *chain.EventFetcher
	store         Store
	contract      *contracts.Contract
	confirmations uint64
	reorgDepth    uint64
}

// SyncResult tells how many new events a sync added
type SyncResult struct {
	Head          uint64
	NewAddBuilder int
	NewWithdraw   int
}

func NewSyncer(opts *SyncerOpts) *Syncer {
	return &Syncer{
		log:           opts.Log.WithField("service", "event-syncer"),
		fetcher:       opts.Fetcher,
		store:         opts.Store,
		contract:      opts.Contract,
		confirmations: opts.Confirmations,
		reorgDepth:    opts.ReorgDepth,
	}
}

func (s *Syncer) Store() Store {
	return s.store
}

// SyncAddBuilder fetches AddBuilder events from the stored cursor, less the reorg depth, up to the head
func (s *Syncer) SyncAddBuilder(ctx context.Context) (numNew int, head uint64, err error) {
	r, ok, err := s.nextRange(ctx, addBuilderCursor)
	if err != nil || !ok {
		return 0, r.to, err
	}

	events, err := s.fetcher.FetchEventRange(ctx, s.contract, contracts.EventAddBuilder, r.from, r.to, false)
	if err != nil {
		return 0, r.to, err
	}
	decoded := make([]*chain.AddBuilderEvent, 0, len(events))
	for _, e := range events {
		addBuilder, err := chain.ToAddBuilderEvent(e)
		if err != nil {
			s.log.WithError(err).WithField("tx", e.TxHash.Hex()).Warn("skipping AddBuilder event")
			continue
		}
		decoded = append(decoded, addBuilder)
		if r.isNew(addBuilder.BlockNumber) {
			numNew++
		}
	}

	if err := s.store.SaveAddBuilderEvents(ctx, decoded, r.from, r.to); err != nil {
		return 0, r.to, fmt.Errorf("save AddBuilder events: %w", err)
	}
	return numNew, r.to, nil
}

// SyncWithdraw fetches Withdraw events with block timestamps
func (s *Syncer) SyncWithdraw(ctx context.Context) (numNew int, head uint64, err error) {
	r, ok, err := s.nextRange(ctx, withdrawCursor)
	if err != nil || !ok {
		return 0, r.to, err
	}

	events, err := s.fetcher.FetchEventRange(ctx, s.contract, contracts.EventWithdraw, r.from, r.to, true)
	if err != nil {
		return 0, r.to, err
	}
	decoded := make([]*chain.WithdrawEvent, 0, len(events))
	for _, e := range events {
		withdraw, err := chain.ToWithdrawEvent(e)
		if err != nil {
			s.log.WithError(err).WithField("tx", e.TxHash.Hex()).Warn("skipping Withdraw event")
			continue
		}
		decoded = append(decoded, withdraw)
		if r.isNew(withdraw.BlockNumber) {
			numNew++
		}
	}

	if err := s.store.SaveWithdrawEvents(ctx, decoded, r.from, r.to); err != nil {
		return 0, r.to, fmt.Errorf("save Withdraw events: %w", err)
	}
	return numNew, r.to, nil
}

// Sync runs both event syncs. A failure of one does not skip the other.
func (s *Syncer) Sync(ctx context.Context) (res SyncResult, err error) {
	var errAdd, errWithdraw error
	res.NewAddBuilder, res.Head, errAdd = s.SyncAddBuilder(ctx)
	res.NewWithdraw, _, errWithdraw = s.SyncWithdraw(ctx)
	if errAdd != nil {
		return res, errAdd
	}
	return res, errWithdraw
}

// syncRange is the block range of one sync. Blocks up to cursor were synced before and are
// only fetched again to catch reorgs.
type syncRange struct {
	from, to uint64
	cursor   uint64
	synced   bool
}

func (r syncRange) isNew(blockNumber uint64) bool {
	return !r.synced || blockNumber > r.cursor
}

// nextRange returns the block range to fetch; ok=false when there is nothing to do
func (s *Syncer) nextRange(ctx context.Context, cursorName string) (r syncRange, ok bool, err error) {
	head, err := s.fetcher.Head(ctx)
	if err != nil {
		return r, false, fmt.Errorf("couldn't get head block: %w", err)
	}
	if head < s.confirmations {
		return r, false, nil
	}
	r.to = head - s.confirmations

	r.cursor, r.synced, err = s.store.Cursor(ctx, cursorName)
	if err != nil {
		return r, false, fmt.Errorf("couldn't get %s cursor: %w", cursorName, err)
	}
	r.from = s.contract.DeployBlock
	if r.synced && r.cursor+1 > r.from {
		r.from = r.cursor + 1
		if r.from-s.contract.DeployBlock > s.reorgDepth {
			r.from -= s.reorgDepth
		} else {
			r.from = s.contract.DeployBlock
		}
	}
	if r.from > r.to {
		return r, false, nil
	}
	return r, true, nil
}
