// Package database exposes the postgres database
package database

import (
	"context"
	"fmt"
	"os"

	"github.com/flashbots/streamscan/chain"
	"github.com/flashbots/streamscan/contracts"
	"github.com/flashbots/streamscan/database/migrations"
	"github.com/flashbots/streamscan/database/vars"
	"github.com/flashbots/streamscan/eventlog"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
)

var _ eventlog.Store = (*DatabaseService)(nil)

type DatabaseService struct {
	DB *sqlx.DB
}

func NewDatabaseService(dsn string) (*DatabaseService, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.DB.SetMaxOpenConns(50)
	db.DB.SetMaxIdleConns(10)
	db.DB.SetConnMaxIdleTime(0)

	if os.Getenv("DB_DONT_APPLY_SCHEMA") == "" {
		migrate.SetTable(vars.TableMigrations)
		numAppliedMigrations, err := migrate.Exec(db.DB, "postgres", migrations.Migrations, migrate.Up)
		if err != nil {
			return nil, fmt.Errorf("applying migrations: %w", err)
		}
		if numAppliedMigrations > 0 && os.Getenv("PRINT_SCHEMA") == "1" {
			fmt.Printf("applied %d migrations\n", numAppliedMigrations)
		}
	}

	return &DatabaseService{
		DB: db,
	}, nil
}

func (s *DatabaseService) Close() error {
	return s.DB.Close()
}

func (s *DatabaseService) Cursor(ctx context.Context, eventName string) (lastBlock uint64, ok bool, err error) {
	var entries []*SyncCursorEntry
	query := `SELECT event_name, last_block FROM ` + vars.TableSyncCursor + ` WHERE event_name=$1`
	err = s.DB.SelectContext(ctx, &entries, query, eventName)
	if err != nil || len(entries) == 0 {
		return 0, false, err
	}
	return entries[0].LastBlock, true, nil
}

// saveCursor must run in the same transaction as the events it covers
func saveCursor(ctx context.Context, tx *sqlx.Tx, eventName string, lastBlock uint64) error {
	query := `INSERT INTO ` + vars.TableSyncCursor + ` (event_name, last_block) VALUES ($1, $2)
		ON CONFLICT (event_name) DO UPDATE SET last_block=EXCLUDED.last_block, updated_at=current_timestamp`
	_, err := tx.ExecContext(ctx, query, eventName, lastBlock)
	return err
}

// deleteRange removes the events a re-fetched block range replaces
func deleteRange(ctx context.Context, tx *sqlx.Tx, table string, fromBlock, lastBlock uint64) error {
	query := `DELETE FROM ` + table + ` WHERE block_number >= $1 AND block_number <= $2`
	_, err := tx.ExecContext(ctx, query, fromBlock, lastBlock)
	return err
}

func (s *DatabaseService) SaveAddBuilderEvents(ctx context.Context, events []*chain.AddBuilderEvent, fromBlock, lastBlock uint64) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err = deleteRange(ctx, tx, vars.TableAddBuilderEvent, fromBlock, lastBlock); err != nil {
		return err
	}

	if len(events) > 0 {
		entries := make([]*AddBuilderEventEntry, len(events))
		for i, e := range events {
			entries[i] = AddBuilderEventToEntry(e)
		}
		query := `INSERT INTO ` + vars.TableAddBuilderEvent + `
			(block_number, tx_hash, log_index, builder_address, amount_wei) VALUES
			(:block_number, :tx_hash, :log_index, :builder_address, :amount_wei)
			ON CONFLICT DO NOTHING`
		if _, err = tx.NamedExecContext(ctx, query, entries); err != nil {
			return err
		}
	}

	if err = saveCursor(ctx, tx, contracts.EventAddBuilder, lastBlock); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *DatabaseService) SaveWithdrawEvents(ctx context.Context, events []*chain.WithdrawEvent, fromBlock, lastBlock uint64) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err = deleteRange(ctx, tx, vars.TableWithdrawEvent, fromBlock, lastBlock); err != nil {
		return err
	}

	if len(events) > 0 {
		entries := make([]*WithdrawEventEntry, len(events))
		for i, e := range events {
			entries[i] = WithdrawEventToEntry(e)
		}
		query := `INSERT INTO ` + vars.TableWithdrawEvent + `
			(block_number, block_timestamp, tx_hash, log_index, builder_address, amount_wei, reason) VALUES
			(:block_number, :block_timestamp, :tx_hash, :log_index, :builder_address, :amount_wei, :reason)
			ON CONFLICT DO NOTHING`
		if _, err = tx.NamedExecContext(ctx, query, entries); err != nil {
			return err
		}
	}

	if err = saveCursor(ctx, tx, contracts.EventWithdraw, lastBlock); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *DatabaseService) AddBuilderEvents(ctx context.Context) ([]*chain.AddBuilderEvent, error) {
	var entries []*AddBuilderEventEntry
	query := `SELECT id, inserted_at, block_number, tx_hash, log_index, builder_address, amount_wei FROM ` + vars.TableAddBuilderEvent + ` ORDER BY block_number ASC, log_index ASC`
	if err := s.DB.SelectContext(ctx, &entries, query); err != nil {
		return nil, err
	}

	events := make([]*chain.AddBuilderEvent, 0, len(entries))
	for _, entry := range entries {
		e, err := entry.ToEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *DatabaseService) WithdrawEvents(ctx context.Context) ([]*chain.WithdrawEvent, error) {
	var entries []*WithdrawEventEntry
	query := `SELECT id, inserted_at, block_number, block_timestamp, tx_hash, log_index, builder_address, amount_wei, reason FROM ` + vars.TableWithdrawEvent + ` ORDER BY block_number ASC, log_index ASC`
	if err := s.DB.SelectContext(ctx, &entries, query); err != nil {
		return nil, err
	}

	events := make([]*chain.WithdrawEvent, 0, len(entries))
	for _, entry := range entries {
		e, err := entry.ToEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// GetTopWithdrawers sums withdrawals per builder, largest first
func (s *DatabaseService) GetTopWithdrawers(ctx context.Context, limit int) (res []*TopWithdrawerEntry, err error) {
	query := `SELECT builder_address, count(*) as num_withdrawals, sum(amount_wei)::text as total_wei FROM ` + vars.TableWithdrawEvent + ` GROUP BY builder_address ORDER BY sum(amount_wei) DESC LIMIT $1`
	err = s.DB.SelectContext(ctx, &res, query, limit)
	return res, err
}
