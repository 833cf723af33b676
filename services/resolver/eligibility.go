package resolver

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/contracts"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrentReads bounds the cap reads in flight per cycle
const DefaultMaxConcurrentReads = 32

type Outcome int

const (
	// Included: the cap read returned a value greater than zero
	Included Outcome = iota
	// Excluded: the cap read returned zero
	Excluded
	// Unknown: the cap read failed, nothing is known about the cap
	Unknown
)

func (o Outcome) String() string {
	switch o {
	case Included:
		return "included"
	case Excluded:
		return "excluded"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// UnknownPolicy decides what an Unknown outcome means for the eligible set
type UnknownPolicy string

const (
	UnknownExclude      UnknownPolicy = "exclude"
	UnknownInclude      UnknownPolicy = "include"
	UnknownKeepPrevious UnknownPolicy = "keep-previous"
)

func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch p := UnknownPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return UnknownExclude, nil
	case UnknownExclude, UnknownInclude, UnknownKeepPrevious:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnknownPolicy, s)
}

// CapReader is the live per-builder read used by the eligibility filter
type CapReader interface {
	StreamedBuilder(ctx context.Context, builder common.Address) (*chain.BuilderStreamInfo, error)
}

// ContractCapReader binds a chain.ContractReader to the stream contract
type ContractCapReader struct {
	Reader   *chain.ContractReader
	Contract *contracts.Contract
}

func (r *ContractCapReader) StreamedBuilder(ctx context.Context, builder common.Address) (*chain.BuilderStreamInfo, error) {
	return r.Reader.StreamedBuilder(ctx, r.Contract, builder)
}

type CandidateResult struct {
	Address common.Address
	Outcome Outcome
	Cap     *big.Int
	Err     error
}

// EligibilityResult holds one outcome per candidate, in candidate order
type EligibilityResult struct {
	Results []CandidateResult
}

func (r *EligibilityResult) Count(outcome Outcome) (n int) {
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Eligible maps the outcomes to the eligible set. previous is the eligible set of the last
// applied cycle and is only consulted for UnknownKeepPrevious.
func (r *EligibilityResult) Eligible(policy UnknownPolicy, previous []common.Address) []common.Address {
	wasEligible := make(map[common.Address]bool, len(previous))
	for _, addr := range previous {
		wasEligible[addr] = true
	}

	eligible := make([]common.Address, 0, len(r.Results))
	for _, res := range r.Results {
		switch res.Outcome {
		case Included:
			eligible = append(eligible, res.Address)
		case Unknown:
			if policy == UnknownInclude || (policy == UnknownKeepPrevious && wasEligible[res.Address]) {
				eligible = append(eligible, res.Address)
			}
		}
	}
	return eligible
}

// ResolveEligibility reads the cap of every candidate concurrently and waits for all reads to
// settle. A failing read never fails the whole filter, it becomes an Unknown outcome.
func ResolveEligibility(ctx context.Context, candidates []common.Address, reader CapReader, maxConcurrentReads int) *EligibilityResult {
	result := &EligibilityResult{Results: make([]CandidateResult, len(candidates))}
	if len(candidates) == 0 {
		return result
	}
	if maxConcurrentReads <= 0 {
		maxConcurrentReads = DefaultMaxConcurrentReads
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		g.Go(func() error {
			result.Results[i] = readCandidate(gctx, candidate, reader)
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func readCandidate(ctx context.Context, candidate common.Address, reader CapReader) CandidateResult {
	res := CandidateResult{Address: candidate}
	info, err := reader.StreamedBuilder(ctx, candidate)
	switch {
	case err != nil:
		res.Outcome = Unknown
		res.Err = fmt.Errorf("%w: %s: %w", ErrLiveReadFailure, candidate.Hex(), err)
	case info == nil || info.Cap == nil:
		res.Outcome = Unknown
		res.Err = fmt.Errorf("%w: %s: no cap in response", ErrLiveReadFailure, candidate.Hex())
	case info.Cap.Sign() > 0:
		res.Outcome = Included
		res.Cap = info.Cap
	default:
		res.Outcome = Excluded
		res.Cap = info.Cap
	}
	return res
}
