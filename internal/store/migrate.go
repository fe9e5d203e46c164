// ABOUTME: Ordered schema migrations with a persistent ledger table
// ABOUTME: Each migration applies inside one transaction together with its ledger record

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// migration is one reversible schema step. up and down run inside the same
// transaction that records (or deletes) the ledger row, so a failed step
// leaves no trace.
type migration struct {
	name string
	up   func(ctx context.Context, tx *sql.Tx) error
	down func(ctx context.Context, tx *sql.Tx) error
}

// migrations is the full ordered history. Append only; never reorder or
// edit an entry that has shipped.
var migrations = []migration{
	{
		name: "001_init",
		up: func(ctx context.Context, tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE idps (
					id TEXT PRIMARY KEY,
					type TEXT NOT NULL,
					issuer TEXT NOT NULL DEFAULT '',
					config_url TEXT NOT NULL DEFAULT '',
					audience TEXT NOT NULL DEFAULT '',
					client_id TEXT NOT NULL DEFAULT '',
					client_secret TEXT NOT NULL DEFAULT '',
					admin_client_id TEXT NOT NULL DEFAULT '',
					admin_client_secret TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE networks (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL DEFAULT '',
					synchronizer_id TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					ledger_api_base_url TEXT NOT NULL DEFAULT '',
					ledger_api_admin_grpc_url TEXT NOT NULL DEFAULT '',
					identity_provider_id TEXT NOT NULL DEFAULT '',
					user_id TEXT
				)`,
				`CREATE TABLE wallets (
					party_id TEXT NOT NULL,
					network_id TEXT NOT NULL,
					"primary" INTEGER NOT NULL DEFAULT 0,
					hint TEXT NOT NULL DEFAULT '',
					public_key TEXT NOT NULL DEFAULT '',
					namespace TEXT NOT NULL DEFAULT '',
					signing_provider_id TEXT NOT NULL DEFAULT '',
					user_id TEXT NOT NULL,
					PRIMARY KEY (party_id, network_id)
				)`,
				`CREATE TABLE sessions (
					id TEXT PRIMARY KEY,
					network_id TEXT NOT NULL,
					access_token TEXT NOT NULL DEFAULT '',
					user_id TEXT NOT NULL UNIQUE
				)`,
				`CREATE TABLE transactions (
					command_id TEXT NOT NULL,
					status TEXT NOT NULL,
					prepared_transaction TEXT NOT NULL DEFAULT '',
					prepared_transaction_hash TEXT NOT NULL DEFAULT '',
					payload TEXT NOT NULL DEFAULT '',
					user_id TEXT NOT NULL,
					PRIMARY KEY (command_id, user_id)
				)`,
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		down: func(ctx context.Context, tx *sql.Tx) error {
			for _, table := range []string{"transactions", "sessions", "wallets", "networks", "idps"} {
				if _, err := tx.ExecContext(ctx, "DROP TABLE "+table); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		name: "002_wallet_lifecycle",
		up: func(ctx context.Context, tx *sql.Tx) error {
			// One column per statement so the DDL stays portable.
			stmts := []string{
				`ALTER TABLE wallets ADD COLUMN status TEXT NOT NULL DEFAULT 'allocated'`,
				`ALTER TABLE wallets ADD COLUMN external_tx_id TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE wallets ADD COLUMN topology_transactions TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE wallets ADD COLUMN reason TEXT NOT NULL DEFAULT ''`,
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		down: func(ctx context.Context, tx *sql.Tx) error {
			stmts := []string{
				`ALTER TABLE wallets DROP COLUMN reason`,
				`ALTER TABLE wallets DROP COLUMN topology_transactions`,
				`ALTER TABLE wallets DROP COLUMN external_tx_id`,
				`ALTER TABLE wallets DROP COLUMN status`,
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		name: "003_primary_index",
		up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`CREATE INDEX idx_wallets_user_primary ON wallets (user_id, "primary")`)
			return err
		},
		down: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DROP INDEX idx_wallets_user_primary`)
			return err
		},
	},
}

// Migrator applies and reverts schema migrations against one database.
type Migrator struct {
	db     *DB
	logger *slog.Logger
}

// NewMigrator creates a migrator for the given database handle.
func NewMigrator(db *DB, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{
		db:     db,
		logger: logger.With("component", "migrator"),
	}
}

// Up applies every migration not yet recorded in the ledger, in order.
// Calling it on an up-to-date database is a no-op.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureLedger(ctx); err != nil {
		return err
	}

	applied, err := m.appliedSet(ctx)
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if applied[mig.name] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("applying migration %s: %w", mig.name, err)
		}
		m.logger.Info("applied migration", "name", mig.name)
	}
	return nil
}

// Down reverts the most recently applied migration. It fails with
// ErrNotFound when the ledger is empty.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.ensureLedger(ctx); err != nil {
		return err
	}

	names, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations to revert: %w", ErrNotFound)
	}
	last := names[len(names)-1]

	var target *migration
	for i := range migrations {
		if migrations[i].name == last {
			target = &migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("ledger names unknown migration %q", last)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := target.down(ctx, tx); err != nil {
		return fmt.Errorf("reverting migration %s: %w", target.name, err)
	}
	query, args, err := m.db.builder().
		Delete("migrations").
		Where(sq.Eq{"name": target.name}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building ledger delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting ledger record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing revert: %w", err)
	}

	m.logger.Info("reverted migration", "name", target.name)
	return nil
}

// Applied returns the names of applied migrations in application order.
func (m *Migrator) Applied(ctx context.Context) ([]string, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return nil, err
	}

	query, args, err := m.db.builder().
		Select("name").
		From("migrations").
		OrderBy("executed_at", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building ledger query: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Pending returns the names of migrations not yet applied, in order.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	applied, err := m.appliedSet(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, mig := range migrations {
		if !applied[mig.name] {
			names = append(names, mig.name)
		}
	}
	return names, nil
}

func (m *Migrator) apply(ctx context.Context, mig migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := mig.up(ctx, tx); err != nil {
		return err
	}

	query, args, err := m.db.builder().
		Insert("migrations").
		Columns("name", "executed_at").
		Values(mig.name, time.Now().UTC().Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building ledger insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	return tx.Commit()
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS migrations (
		name TEXT PRIMARY KEY,
		executed_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) appliedSet(ctx context.Context) (map[string]bool, error) {
	names, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set, nil
}
