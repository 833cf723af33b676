package migrations

import (
	"github.com/flashbots/streamscan/database/vars"
	migrate "github.com/rubenv/sql-migrate"
)

var migration002SQL = `
	CREATE INDEX IF NOT EXISTS ` + vars.TableAddBuilderEvent + `_block_idx ON ` + vars.TableAddBuilderEvent + `("block_number", "log_index");
	CREATE INDEX IF NOT EXISTS ` + vars.TableWithdrawEvent + `_block_idx ON ` + vars.TableWithdrawEvent + `("block_number", "log_index");
	CREATE INDEX IF NOT EXISTS ` + vars.TableWithdrawEvent + `_builder_idx ON ` + vars.TableWithdrawEvent + `("builder_address");
`

var Migration002AddBuilderIndexes = &migrate.Migration{
	Id: "002-add-builder-indexes",
	Up: []string{migration002SQL},

	DisableTransactionUp:   false,
	DisableTransactionDown: true,
}
