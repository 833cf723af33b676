package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/chain"
	"github.com/sirupsen/logrus"
	uberatomic "go.uber.org/atomic"
)

type State int32

const (
	StateIdle State = iota
	StateResolving
	StateResolved
	StateResolvedEmpty
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateResolvedEmpty:
		return "resolved-empty"
	}
	return "invalid"
}

// Cycle is one applied resolution
type Cycle struct {
	Seq         uint64
	Fingerprint Fingerprint
	Candidates  []common.Address
	Result      *EligibilityResult
	Eligible    []common.Address
	StartedAt   time.Time
	FinishedAt  time.Time
}

type ResolverOpts struct {
	Log                *logrus.Entry
	Reader             CapReader
	UnknownPolicy      UnknownPolicy
	MaxConcurrentReads int
}

// Resolver runs resolution cycles: candidates from the AddBuilder events, then the eligibility
// filter. Every cycle gets a sequence number and only the newest started cycle may publish.
type Resolver struct {
	log                *logrus.Entry
	reader             CapReader
	policy             UnknownPolicy
	maxConcurrentReads int

	seq   uberatomic.Uint64
	state uberatomic.Int32

	lock        sync.RWMutex
	triggered   bool
	fingerprint Fingerprint
	current     *Cycle
}

func NewResolver(opts *ResolverOpts) *Resolver {
	policy := opts.UnknownPolicy
	if policy == "" {
		policy = UnknownExclude
	}
	return &Resolver{
		log:                opts.Log.WithField("service", "resolver"),
		reader:             opts.Reader,
		policy:             policy,
		maxConcurrentReads: opts.MaxConcurrentReads,
	}
}

func (r *Resolver) State() State {
	return State(r.state.Load())
}

// Current returns the last applied cycle, nil before the first one finished
func (r *Resolver) Current() *Cycle {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.current
}

// Changed reports whether the event set differs from the one that triggered the last cycle
func (r *Resolver) Changed(events []*chain.AddBuilderEvent) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return !r.triggered || r.fingerprint != FingerprintOf(events)
}

// MaybeResolve starts a cycle only if the event set changed. It returns the latest applied
// cycle and whether this call ran one.
func (r *Resolver) MaybeResolve(ctx context.Context, events []*chain.AddBuilderEvent) (*Cycle, bool) {
	if !r.Changed(events) {
		return r.Current(), false
	}
	cycle, applied := r.Resolve(ctx, events)
	if !applied {
		return r.Current(), false
	}
	return cycle, true
}

// Resolve runs one cycle. The result is dropped (applied=false) when a newer cycle was started
// while this one was reading.
func (r *Resolver) Resolve(ctx context.Context, events []*chain.AddBuilderEvent) (cycle *Cycle, applied bool) {
	fingerprint := FingerprintOf(events)

	r.lock.Lock()
	seq := r.seq.Inc()
	r.triggered = true
	r.fingerprint = fingerprint
	r.state.Store(int32(StateResolving))
	r.lock.Unlock()

	log := r.log.WithFields(logrus.Fields{
		"seq":    seq,
		"events": fingerprint.Count,
	})

	cycle = &Cycle{
		Seq:         seq,
		Fingerprint: fingerprint,
		Candidates:  ResolveCandidates(events),
		StartedAt:   time.Now().UTC(),
	}
	cycle.Result = ResolveEligibility(ctx, cycle.Candidates, r.reader, r.maxConcurrentReads)
	cycle.FinishedAt = time.Now().UTC()

	for _, res := range cycle.Result.Results {
		if res.Outcome == Unknown {
			liveReadFailures.Inc()
			log.WithError(res.Err).Warn("cap read failed, outcome unknown")
		}
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if seq < r.seq.Load() {
		cyclesTotal.WithLabelValues("stale").Inc()
		log.Info("discarding stale resolution cycle")
		return cycle, false
	}

	var previous []common.Address
	if r.current != nil {
		previous = r.current.Eligible
	}
	cycle.Eligible = cycle.Result.Eligible(r.policy, previous)
	r.current = cycle

	if len(cycle.Eligible) == 0 {
		r.state.Store(int32(StateResolvedEmpty))
	} else {
		r.state.Store(int32(StateResolved))
	}
	cyclesTotal.WithLabelValues("applied").Inc()
	candidateBuilders.Set(float64(len(cycle.Candidates)))
	eligibleBuilders.Set(float64(len(cycle.Eligible)))

	log.WithFields(logrus.Fields{
		"candidates": len(cycle.Candidates),
		"eligible":   len(cycle.Eligible),
		"excluded":   cycle.Result.Count(Excluded),
		"unknown":    cycle.Result.Count(Unknown),
		"duration":   cycle.FinishedAt.Sub(cycle.StartedAt).String(),
	}).Info("resolution cycle done")
	return cycle, true
}
