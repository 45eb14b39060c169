/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"runtime/debug"

	"github.com/hyperledger-labs/redeemverify/token/services/metrics"
	"github.com/hyperledger-labs/redeemverify/token/services/verifier"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	SQLite   = "sqlite"
	Postgres = "postgres"

	pgxDriver = "pgx"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenDB opens the database of the given ledger driver and checks it is reachable.
func OpenDB(driver, dataSource string) (*sql.DB, error) {
	name := driver
	switch driver {
	case SQLite:
	case Postgres:
		name = pgxDriver
	default:
		return nil, errors.Errorf("unsupported ledger database [%s]", driver)
	}
	db, err := sql.Open(name, dataSource)
	if err != nil {
		return nil, errors.Wrapf(err, "failed opening [%s] ledger", driver)
	}
	if driver == SQLite {
		// one writer, and :memory: databases are per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed connecting to [%s] ledger", driver)
	}
	return db, nil
}

// SQLSink stores outcomes in a single table, both ledgers told apart by the outcome column.
type SQLSink struct {
	db     *sql.DB
	runID  string
	insert string
	owned  bool
}

// NewSQLSink creates the table if needed. The sink does not close db.
func NewSQLSink(db *sql.DB, driver, table, runID string) (*SQLSink, error) {
	if !tableName.MatchString(table) {
		return nil, errors.Errorf("illegal table name [%s]", table)
	}
	if err := initSchema(db, schema(table)...); err != nil {
		return nil, err
	}
	return &SQLSink{db: db, runID: runID, insert: insertStatement(driver, table)}, nil
}

// OpenSQLSink opens the database and returns a sink that closes it.
func OpenSQLSink(driver, dataSource, table, runID string) (*SQLSink, error) {
	db, err := OpenDB(driver, dataSource)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLSink(db, driver, table, runID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

func schema(table string) []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			id TEXT NOT NULL,
			payment_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			reason TEXT NOT NULL,
			value TEXT NOT NULL
		);`, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_run_%s ON %s ( run_id );", table, table),
	}
}

func insertStatement(driver, table string) string {
	if driver == Postgres {
		return fmt.Sprintf("INSERT INTO %s (run_id, outcome, id, payment_id, ts, reason, value) VALUES ($1, $2, $3, $4, $5, $6, $7)", table)
	}
	return fmt.Sprintf("INSERT INTO %s (run_id, outcome, id, payment_id, ts, reason, value) VALUES (?, ?, ?, ?, ?, ?, ?)", table)
}

func initSchema(db *sql.DB, schemas ...string) (err error) {
	logger.Info("creating ledger tables")
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed starting schema transaction")
	}
	defer func() {
		if err != nil && tx != nil {
			if err := tx.Rollback(); err != nil {
				logger.Errorf("failed to rollback [%s][%s]", err, debug.Stack())
			}
		}
	}()
	for _, s := range schemas {
		logger.Debug(s)
		if _, err = tx.Exec(s); err != nil {
			return errors.Wrap(err, "error creating schema")
		}
	}
	return tx.Commit()
}

func (s *SQLSink) Append(ctx context.Context, o verifier.Outcome) error {
	outcome := metrics.OutcomeFailure
	if o.Verified() {
		outcome = metrics.OutcomeSuccess
	}
	_, err := s.db.ExecContext(ctx, s.insert, s.runID, outcome, o.ID, o.PaymentID, o.Timestamp, o.Reason.String(), o.Value.String())
	return errors.Wrapf(err, "failed storing outcome of [%s]", o.ID)
}

func (s *SQLSink) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
