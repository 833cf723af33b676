package website

import (
	"github.com/flashbots/streamscan/services/resolver"
)

type HTTPErrorResp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BuilderEntry is a builder row with ETH formatted amounts
type BuilderEntry struct {
	Address        string `json:"address"`
	CapWei         string `json:"cap_wei"`
	CapEth         string `json:"cap_eth"`
	UnlockedWei    string `json:"unlocked_wei"`
	UnlockedEth    string `json:"unlocked_eth"`
	WithdrawnEth   string `json:"withdrawn_eth"`
	NumWithdrawals int    `json:"num_withdrawals"`
	UnlockedPct    string `json:"unlocked_pct"`
}

type WithdrawalEntry struct {
	Builder     string `json:"builder"`
	AmountWei   string `json:"amount_wei"`
	AmountEth   string `json:"amount_eth"`
	Reason      string `json:"reason"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   int64  `json:"timestamp"`
	TimeAgo     string `json:"time_ago"`
	TxHash      string `json:"tx_hash"`
	Eligible    bool   `json:"eligible"`
}

type buildersResp struct {
	Contract resolver.ContractInfo `json:"contract"`
	Builders []*BuilderEntry       `json:"builders"`
}

type viewerResp struct {
	Address           string             `json:"address"`
	Ready             bool               `json:"ready"`
	IsEligibleBuilder bool               `json:"is_eligible_builder"`
	Withdrawals       []*WithdrawalEntry `json:"withdrawals"`
}
