package website

import (
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/common"
	"github.com/flashbots/streamscan/services/resolver"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Printer for pretty printing numbers
var printer = message.NewPrinter(language.English)

func weiToEth(wei string) string {
	if wei == "" {
		return "-"
	}
	return common.WeiStrToEthStr(wei, 4)
}

func prettyInt(i uint64) string {
	return printer.Sprintf("%d", i)
}

func shortAddress(address string) string {
	if len(address) < 12 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}

func isAddress(s string) bool {
	return ethcommon.IsHexAddress(strings.TrimSpace(s))
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// unlockedPercent is unlocked / cap in percent with two decimals
func unlockedPercent(unlockedWei, capWei string) string {
	capValue := common.StrToBigInt(capWei)
	if capValue.Sign() <= 0 {
		return "-"
	}
	unlocked := new(big.Float).SetInt(common.StrToBigInt(unlockedWei))
	p, _ := new(big.Float).Quo(unlocked, new(big.Float).SetInt(capValue)).Float64()
	return printer.Sprintf("%.2f", p*100)
}

func prepareBuilderEntries(builders []*resolver.Builder) []*BuilderEntry {
	entries := make([]*BuilderEntry, 0, len(builders))
	for _, b := range builders {
		entry := &BuilderEntry{
			Address:        b.Address,
			CapWei:         b.CapWei,
			CapEth:         "-",
			UnlockedWei:    b.UnlockedWei,
			UnlockedEth:    "-",
			WithdrawnEth:   weiToEth(b.TotalWithdrawnWei),
			NumWithdrawals: len(b.Withdrawals),
			UnlockedPct:    "-",
		}
		if b.DataLoaded {
			entry.CapEth = weiToEth(b.CapWei)
			entry.UnlockedEth = weiToEth(b.UnlockedWei)
			entry.UnlockedPct = unlockedPercent(b.UnlockedWei, b.CapWei)
		}
		entries = append(entries, entry)
	}
	return entries
}

func prepareWithdrawalEntries(withdrawals []*resolver.Withdrawal) []*WithdrawalEntry {
	entries := make([]*WithdrawalEntry, 0, len(withdrawals))
	for _, w := range withdrawals {
		entry := &WithdrawalEntry{
			Builder:     w.Builder,
			AmountWei:   w.AmountWei,
			AmountEth:   weiToEth(w.AmountWei),
			Reason:      w.Reason,
			BlockNumber: w.BlockNumber,
			TimeAgo:     timeAgo(w.Timestamp),
			TxHash:      w.TxHash,
			Eligible:    w.Eligible,
		}
		if !w.Timestamp.IsZero() {
			entry.Timestamp = w.Timestamp.Unix()
		}
		entries = append(entries, entry)
	}
	return entries
}

func totalWithdrawn(withdrawals []*resolver.Withdrawal) string {
	total := new(big.Int)
	for _, w := range withdrawals {
		total.Add(total, common.StrToBigInt(w.AmountWei))
	}
	return common.WeiToEthStr(total)
}

// BuilderTable renders the eligible builders as a markdown-style text table
func BuilderTable(snapshot *resolver.Snapshot) string {
	rows := [][]string{}
	for _, b := range prepareBuilderEntries(snapshot.Builders) {
		rows = append(rows, []string{
			b.Address,
			b.CapEth,
			b.UnlockedEth,
			b.UnlockedPct,
			b.WithdrawnEth,
			printer.Sprintf("%d", b.NumWithdrawals),
		})
	}
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.SetHeader([]string{"Builder", "Cap (ETH)", "Unlocked (ETH)", "Unlocked %", "Withdrawn (ETH)", "Withdrawals"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetAutoWrapText(false)
	table.SetCenterSeparator("|")
	table.AppendBulk(rows)
	table.Render()
	return tableString.String()
}

// WithdrawalTable renders the contribution history, newest first
func WithdrawalTable(withdrawals []*resolver.Withdrawal) string {
	rows := [][]string{}
	for _, w := range prepareWithdrawalEntries(withdrawals) {
		eligible := ""
		if w.Eligible {
			eligible = "yes"
		}
		rows = append(rows, []string{
			printer.Sprintf("%d", w.BlockNumber),
			w.TimeAgo,
			w.Builder,
			w.AmountEth,
			eligible,
			w.Reason,
		})
	}
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.SetHeader([]string{"Block", "When", "Builder", "Amount (ETH)", "Eligible", "Reason"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetAutoWrapText(false)
	table.SetCenterSeparator("|")
	table.AppendBulk(rows)
	table.Render()
	return tableString.String()
}
