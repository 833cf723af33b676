package migrations

import (
	"github.com/flashbots/streamscan/database/vars"
	migrate "github.com/rubenv/sql-migrate"
)

var Migration001InitDatabase = &migrate.Migration{
	Id: "001-init-database",
	Up: []string{`
		CREATE TABLE IF NOT EXISTS ` + vars.TableAddBuilderEvent + ` (
			id          bigint GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			inserted_at timestamp NOT NULL default current_timestamp,

			block_number    bigint NOT NULL,
			tx_hash         varchar(66) NOT NULL,
			log_index       bigint NOT NULL,
			builder_address varchar(42) NOT NULL,
			amount_wei      NUMERIC(48, 0) NOT NULL,

			UNIQUE (tx_hash, log_index)
		);

		CREATE TABLE IF NOT EXISTS ` + vars.TableWithdrawEvent + ` (
			id          bigint GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			inserted_at timestamp NOT NULL default current_timestamp,

			block_number    bigint NOT NULL,
			block_timestamp bigint NOT NULL,
			tx_hash         varchar(66) NOT NULL,
			log_index       bigint NOT NULL,
			builder_address varchar(42) NOT NULL,
			amount_wei      NUMERIC(48, 0) NOT NULL,
			reason          text NOT NULL,

			UNIQUE (tx_hash, log_index)
		);

		CREATE TABLE IF NOT EXISTS ` + vars.TableSyncCursor + ` (
			event_name  varchar(64) PRIMARY KEY,
			last_block  bigint NOT NULL,
			updated_at  timestamp NOT NULL default current_timestamp
		);
	`},
	Down: []string{`
		DROP TABLE IF EXISTS ` + vars.TableAddBuilderEvent + `;
		DROP TABLE IF EXISTS ` + vars.TableWithdrawEvent + `;
		DROP TABLE IF EXISTS ` + vars.TableSyncCursor + `;
	`},
	DisableTransactionUp:   false,
	DisableTransactionDown: false,
}
