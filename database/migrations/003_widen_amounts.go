package migrations

import (
	"github.com/flashbots/streamscan/database/vars"
	migrate "github.com/rubenv/sql-migrate"
)

// uint256 amounts need up to 78 digits
var migration003SQL = `
	ALTER TABLE ` + vars.TableAddBuilderEvent + ` ALTER COLUMN amount_wei TYPE NUMERIC(78, 0);
	ALTER TABLE ` + vars.TableWithdrawEvent + ` ALTER COLUMN amount_wei TYPE NUMERIC(78, 0);
`

var Migration003WidenAmounts = &migrate.Migration{
	Id: "003-widen-amounts",
	Up: []string{migration003SQL},

	DisableTransactionUp:   false,
	DisableTransactionDown: true,
}
