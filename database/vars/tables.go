// Package vars contains the database variables such as dynamic table names
package vars

import (
	"github.com/flashbots/streamscan/common"
)

var (
	tableBase = common.GetEnv("DB_TABLE_PREFIX", "ssdev")

	TableMigrations      = tableBase + "_migrations"
	TableAddBuilderEvent = tableBase + "_add_builder_event"
	TableWithdrawEvent   = tableBase + "_withdraw_event"
	TableSyncCursor      = tableBase + "_sync_cursor"
)
