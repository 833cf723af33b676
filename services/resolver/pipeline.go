package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/contracts"
	"github.com/flashbots/streamscan/eventlog"
	"github.com/sirupsen/logrus"
	uberatomic "go.uber.org/atomic"
)

// Publisher receives every snapshot built by the pipeline
type Publisher interface {
	Publish(ctx context.Context, snapshot *Snapshot) error
}

type PipelineOpts struct {
	Log *logrus.Entry

	// Directory and DirectoryErr come from loading the contract directory. Either an error
	// here or a missing ContractName leaves the pipeline not ready.
	Directory    *contracts.Directory
	DirectoryErr error
	ContractName string

	Backend       chain.Backend
	BlockTimes    chain.BlockTimeSource
	Store         eventlog.Store // defaults to an in-memory store
	MaxBlockRange uint64
	Confirmations uint64
	ReorgDepth    uint64

	UnknownPolicy      UnknownPolicy
	MaxConcurrentReads int

	Publishers []Publisher
}

// Pipeline is the refresh loop body: sync the event log, re-resolve the eligible set when the
// AddBuilder events changed, refresh live builder data and rebuild the snapshot.
type Pipeline struct {
	log        *logrus.Entry
	contract   *contracts.Contract
	configErr  error
	syncer     *eventlog.Syncer
	store      eventlog.Store
	reader     *chain.ContractReader
	resolver   *Resolver
	publishers []Publisher

	builderDataLoading    uberatomic.Bool
	builderEventsLoading  uberatomic.Bool
	withdrawEventsLoading uberatomic.Bool
	syncedBlock           uberatomic.Uint64

	lock         sync.RWMutex
	snapshot     *Snapshot
	builderData  []chain.BuilderData
	withdrawals  []*chain.WithdrawEvent
}

func NewPipeline(opts *PipelineOpts) *Pipeline {
	p := &Pipeline{
		log:        opts.Log.WithField("service", "pipeline"),
		publishers: opts.Publishers,
	}

	p.contract, p.configErr = resolveContract(opts)
	if p.configErr != nil {
		p.log.WithError(p.configErr).Error("pipeline not ready")
		p.snapshot = p.buildSnapshot(nil)
		return p
	}

	p.store = opts.Store
	if p.store == nil {
		p.store = eventlog.NewMemoryStore()
	}
	fetcher := chain.NewEventFetcher(&chain.EventFetcherOpts{
		Log:           opts.Log,
		Backend:       opts.Backend,
		BlockTimes:    opts.BlockTimes,
		MaxBlockRange: opts.MaxBlockRange,
	})
	p.syncer = eventlog.NewSyncer(&eventlog.SyncerOpts{
		Log:           opts.Log,
		Fetcher:       fetcher,
		Store:         p.store,
		Contract:      p.contract,
		Confirmations: opts.Confirmations,
		ReorgDepth:    opts.ReorgDepth,
	})
	p.reader = chain.NewContractReader(opts.Backend)
	p.resolver = NewResolver(&ResolverOpts{
		Log:                opts.Log,
		Reader:             &ContractCapReader{Reader: p.reader, Contract: p.contract},
		UnknownPolicy:      opts.UnknownPolicy,
		MaxConcurrentReads: opts.MaxConcurrentReads,
	})

	// loading until the first tick finished
	p.builderEventsLoading.Store(true)
	p.withdrawEventsLoading.Store(true)
	p.builderDataLoading.Store(true)
	p.snapshot = p.buildSnapshot(nil)
	return p
}

func resolveContract(opts *PipelineOpts) (*contracts.Contract, error) {
	if opts.DirectoryErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigurationFailure, opts.DirectoryErr)
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("%w: no chain backend", ErrConfigurationFailure)
	}
	contract, err := opts.Directory.Stream(opts.ContractName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigurationFailure, err)
	}
	return contract, nil
}

func (p *Pipeline) Ready() bool {
	return p.configErr == nil
}

// ConfigError is the ConfigurationFailure that keeps the pipeline not ready, if any
func (p *Pipeline) ConfigError() error {
	return p.configErr
}

func (p *Pipeline) Contract() *contracts.Contract {
	return p.contract
}

func (p *Pipeline) Resolver() *Resolver {
	return p.resolver
}

// AddPublisher registers a publisher for the snapshots of all following ticks
func (p *Pipeline) AddPublisher(publisher Publisher) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.publishers = append(p.publishers[:len(p.publishers):len(p.publishers)], publisher)
}

// Snapshot returns the latest snapshot, never nil
func (p *Pipeline) Snapshot() *Snapshot {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.snapshot
}

// Tick runs one refresh. Retrieval and live read failures are absorbed and logged, the
// snapshot is always rebuilt. Only context cancellation is returned as an error.
func (p *Pipeline) Tick(ctx context.Context) (*Snapshot, error) {
	if !p.Ready() {
		return p.Snapshot(), nil
	}

	p.syncEvents(ctx)
	if err := ctx.Err(); err != nil {
		return p.Snapshot(), err
	}

	addBuilderEvents, err := p.store.AddBuilderEvents(ctx)
	if err != nil {
		// unchanged event set, keep the current cycle
		p.log.WithError(err).Warn("couldn't load AddBuilder events from store")
	} else {
		p.resolver.MaybeResolve(ctx, addBuilderEvents)
	}
	cycle := p.resolver.Current()

	p.refreshBuilderData(ctx, cycle)

	withdrawals, err := p.store.WithdrawEvents(ctx)
	if err != nil {
		p.log.WithError(err).Warn("couldn't load Withdraw events from store")
	} else {
		p.lock.Lock()
		p.withdrawals = withdrawals
		p.lock.Unlock()
	}

	snapshot := p.buildSnapshot(cycle)
	p.lock.Lock()
	p.snapshot = snapshot
	p.lock.Unlock()

	p.lock.RLock()
	publishers := p.publishers
	p.lock.RUnlock()
	for _, publisher := range publishers {
		if err := publisher.Publish(ctx, snapshot); err != nil {
			p.log.WithError(err).Warn("couldn't publish snapshot")
		}
	}
	return snapshot, ctx.Err()
}

// syncEvents brings the event log up to date. A failed sync is a RetrievalFailure: the store
// keeps the events it has and the pipeline works with those.
func (p *Pipeline) syncEvents(ctx context.Context) {
	p.builderEventsLoading.Store(true)
	numNew, head, err := p.syncer.SyncAddBuilder(ctx)
	p.builderEventsLoading.Store(false)
	if err != nil {
		retrievalFailures.WithLabelValues(contracts.EventAddBuilder).Inc()
		p.log.WithError(fmt.Errorf("%w: %w", ErrRetrievalFailure, err)).Warn("AddBuilder sync failed")
	} else {
		p.syncedBlock.Store(head)
		syncedBlock.WithLabelValues(contracts.EventAddBuilder).Set(float64(head))
		if numNew > 0 {
			p.log.WithField("numNew", numNew).Info("new AddBuilder events")
		}
	}

	p.withdrawEventsLoading.Store(true)
	numNew, head, err = p.syncer.SyncWithdraw(ctx)
	p.withdrawEventsLoading.Store(false)
	if err != nil {
		retrievalFailures.WithLabelValues(contracts.EventWithdraw).Inc()
		p.log.WithError(fmt.Errorf("%w: %w", ErrRetrievalFailure, err)).Warn("Withdraw sync failed")
	} else {
		syncedBlock.WithLabelValues(contracts.EventWithdraw).Set(float64(head))
		if numNew > 0 {
			p.log.WithField("numNew", numNew).Info("new Withdraw events")
		}
	}
}

// refreshBuilderData issues the batched allBuildersData read for the eligible set. On error
// the previous data is kept.
func (p *Pipeline) refreshBuilderData(ctx context.Context, cycle *Cycle) {
	if cycle == nil {
		return
	}

	p.builderDataLoading.Store(true)
	defer p.builderDataLoading.Store(false)

	data, err := p.reader.AllBuildersData(ctx, p.contract, cycle.Eligible)
	if err != nil {
		p.log.WithError(err).Warn("allBuildersData read failed, keeping previous builder data")
		return
	}
	p.lock.Lock()
	p.builderData = data
	p.lock.Unlock()
}

func (p *Pipeline) buildSnapshot(cycle *Cycle) *Snapshot {
	snapshot := &Snapshot{
		Status: Status{
			Ready:                 p.Ready(),
			State:                 StateIdle.String(),
			BuilderDataLoading:    p.builderDataLoading.Load(),
			BuilderEventsLoading:  p.builderEventsLoading.Load(),
			WithdrawEventsLoading: p.withdrawEventsLoading.Load(),
			SyncedBlock:           p.syncedBlock.Load(),
			UpdatedAt:             time.Now().UTC(),
		},
		Builders:      []*Builder{},
		Contributions: []*Withdrawal{},
	}
	if p.configErr != nil {
		snapshot.Status.ConfigError = p.configErr.Error()
		return snapshot
	}

	snapshot.Contract = ContractInfo{
		Name:        p.contract.Name,
		Address:     p.contract.Address.Hex(),
		DeployBlock: p.contract.DeployBlock,
	}
	snapshot.Status.State = p.resolver.State().String()

	p.lock.RLock()
	defer p.lock.RUnlock()

	if cycle == nil {
		snapshot.Builders, snapshot.Contributions = Aggregate(nil, nil, p.withdrawals)
		return snapshot
	}

	snapshot.Status.Seq = cycle.Seq
	snapshot.Status.Fingerprint = cycle.Fingerprint
	snapshot.Status.NumCandidates = len(cycle.Candidates)
	snapshot.Status.NumEligible = len(cycle.Eligible)
	snapshot.Status.NumExcluded = cycle.Result.Count(Excluded)
	snapshot.Status.NumUnknown = cycle.Result.Count(Unknown)
	snapshot.Builders, snapshot.Contributions = Aggregate(cycle.Eligible, p.builderData, p.withdrawals)
	return snapshot
}

// Run calls Tick every interval until ctx is done
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	for {
		if _, err := p.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.log.WithError(err).Error("refresh tick failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
