package database

import (
	"time"
)

type AddBuilderEventEntry struct {
	ID         int64     `db:"id"`
	InsertedAt time.Time `db:"inserted_at"`

	BlockNumber    uint64 `db:"block_number"`
	TxHash         string `db:"tx_hash"`
	LogIndex       uint64 `db:"log_index"`
	BuilderAddress string `db:"builder_address"`
	AmountWei      string `db:"amount_wei"`
}

type WithdrawEventEntry struct {
	ID         int64     `db:"id"`
	InsertedAt time.Time `db:"inserted_at"`

	BlockNumber    uint64 `db:"block_number"`
	BlockTimestamp uint64 `db:"block_timestamp"`
	TxHash         string `db:"tx_hash"`
	LogIndex       uint64 `db:"log_index"`
	BuilderAddress string `db:"builder_address"`
	AmountWei      string `db:"amount_wei"`
	Reason         string `db:"reason"`
}

type SyncCursorEntry struct {
	EventName string `db:"event_name"`
	LastBlock uint64 `db:"last_block"`
}

type TopWithdrawerEntry struct {
	BuilderAddress string `db:"builder_address" json:"builder_address"`
	NumWithdrawals uint64 `db:"num_withdrawals" json:"num_withdrawals"`
	TotalWei       string `db:"total_wei"       json:"total_wei"`
}
