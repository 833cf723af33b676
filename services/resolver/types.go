package resolver

import (
	"time"

	"github.com/flashbots/streamscan/common"
)

type ContractInfo struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	DeployBlock uint64 `json:"deploy_block"`
}

// Status carries readiness, loading flags and information about the last cycle
type Status struct {
	Ready       bool   `json:"ready"`
	ConfigError string `json:"config_error,omitempty"`

	State       string      `json:"state"`
	Seq         uint64      `json:"seq"`
	Fingerprint Fingerprint `json:"fingerprint"`

	BuilderDataLoading    bool `json:"builder_data_loading"`
	BuilderEventsLoading  bool `json:"builder_events_loading"`
	WithdrawEventsLoading bool `json:"withdraw_events_loading"`

	NumCandidates int `json:"num_candidates"`
	NumEligible   int `json:"num_eligible"`
	NumExcluded   int `json:"num_excluded"`
	NumUnknown    int `json:"num_unknown"`

	SyncedBlock uint64    `json:"synced_block"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Withdrawal struct {
	Builder     string    `json:"builder"`
	AmountWei   string    `json:"amount_wei"`
	Reason      string    `json:"reason"`
	BlockNumber uint64    `json:"block_number"`
	Timestamp   time.Time `json:"timestamp"`
	TxHash      string    `json:"tx_hash"`

	// Eligible is false for withdrawals of builders not in the current eligible set
	Eligible bool `json:"eligible"`
}

type Builder struct {
	Address string `json:"address"`

	// CapWei and UnlockedWei are "0" until allBuildersData returned this builder
	CapWei            string        `json:"cap_wei"`
	UnlockedWei       string        `json:"unlocked_wei"`
	DataLoaded        bool          `json:"data_loaded"`
	TotalWithdrawnWei string        `json:"total_withdrawn_wei"`
	Withdrawals       []*Withdrawal `json:"withdrawals"`
}

// Snapshot is everything the dashboard shows, rebuilt on every refresh tick
type Snapshot struct {
	Status        Status        `json:"status"`
	Contract      ContractInfo  `json:"contract"`
	Builders      []*Builder    `json:"builders"`
	Contributions []*Withdrawal `json:"contributions"`
}

// IsEligibleBuilder is true iff viewer is the address of a builder in the snapshot. An empty
// or invalid viewer is never eligible.
func (s *Snapshot) IsEligibleBuilder(viewer string) bool {
	if s == nil {
		return false
	}
	for _, b := range s.Builders {
		if common.SameAddress(viewer, b.Address) {
			return true
		}
	}
	return false
}

// WithdrawalsOf returns the contribution history of one builder, newest first
func (s *Snapshot) WithdrawalsOf(builder string) []*Withdrawal {
	res := []*Withdrawal{}
	if s == nil {
		return res
	}
	for _, w := range s.Contributions {
		if common.SameAddress(builder, w.Builder) {
			res = append(res, w)
		}
	}
	return res
}
