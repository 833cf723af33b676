package resolver

import (
	"math/big"
	"sort"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/chain"
)

// Aggregate joins the eligible set with its live stream data and the withdraw log.
//
// Builders follow the order of eligible. A builder missing from data keeps empty cap and
// unlocked amounts. Contributions hold every withdrawal, newest first, whether or not its
// builder is eligible.
func Aggregate(eligible []ethcommon.Address, data []chain.BuilderData, withdrawals []*chain.WithdrawEvent) (builders []*Builder, contributions []*Withdrawal) {
	dataByAddress := make(map[ethcommon.Address]chain.BuilderData, len(data))
	for _, d := range data {
		dataByAddress[d.BuilderAddress] = d
	}

	isEligible := make(map[ethcommon.Address]bool, len(eligible))
	for _, addr := range eligible {
		isEligible[addr] = true
	}

	sorted := make([]*chain.WithdrawEvent, 0, len(withdrawals))
	for _, w := range withdrawals {
		if w != nil {
			sorted = append(sorted, w)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BlockNumber != sorted[j].BlockNumber {
			return sorted[i].BlockNumber > sorted[j].BlockNumber
		}
		return sorted[i].LogIndex > sorted[j].LogIndex
	})

	withdrawalsByBuilder := make(map[ethcommon.Address][]*Withdrawal)
	totals := make(map[ethcommon.Address]*big.Int)
	contributions = make([]*Withdrawal, 0, len(sorted))
	for _, w := range sorted {
		entry := &Withdrawal{
			Builder:     w.Builder.Hex(),
			AmountWei:   bigString(w.Amount),
			Reason:      w.Reason,
			BlockNumber: w.BlockNumber,
			TxHash:      w.TxHash.Hex(),
			Eligible:    isEligible[w.Builder],
		}
		if w.BlockTimestamp > 0 {
			entry.Timestamp = w.Time()
		}
		contributions = append(contributions, entry)
		withdrawalsByBuilder[w.Builder] = append(withdrawalsByBuilder[w.Builder], entry)

		if totals[w.Builder] == nil {
			totals[w.Builder] = new(big.Int)
		}
		if w.Amount != nil {
			totals[w.Builder].Add(totals[w.Builder], w.Amount)
		}
	}

	builders = make([]*Builder, 0, len(eligible))
	for _, addr := range eligible {
		b := &Builder{
			Address:           addr.Hex(),
			CapWei:            "0",
			UnlockedWei:       "0",
			TotalWithdrawnWei: bigString(totals[addr]),
			Withdrawals:       withdrawalsByBuilder[addr],
		}
		if d, ok := dataByAddress[addr]; ok {
			b.CapWei = bigString(d.Cap)
			b.UnlockedWei = bigString(d.UnlockedAmount)
			b.DataLoaded = true
		}
		if b.Withdrawals == nil {
			b.Withdrawals = []*Withdrawal{}
		}
		builders = append(builders, b)
	}
	return builders, contributions
}

func bigString(b *big.Int) string {
	if b == nil {
		return "0"
	}
	return b.String()
}
