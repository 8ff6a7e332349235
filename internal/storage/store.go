// Package storage is the database/sql ledger store. It runs on SQLite for
// single-node deployments and on PostgreSQL, with the schema managed by
// embedded migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"paypulse/internal/core"
	"paypulse/internal/ledger"
	"paypulse/internal/log"
)

// Dialect selects the SQL flavour and driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// sqliteTimeLayout sorts lexically in UTC.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func (d Dialect) timeArg(t time.Time) any {
	if d == Postgres {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func (d Dialect) readOptions() *sql.TxOptions {
	if d == Postgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// Store implements ledger.Store on a SQL database.
type Store struct {
	dialect Dialect
	db      *sql.DB // write transactions
	reader  *sql.DB // snapshot reads
	logger  *log.Logger
}

var _ ledger.Store = (*Store)(nil)

// OpenSQLite opens (creating if needed) the SQLite database at path and
// migrates it. Writers share a single connection that begins IMMEDIATE
// transactions; readers use a separate query-only pool over WAL.
func OpenSQLite(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := RunMigrations(SQLite, path); err != nil {
		return nil, err
	}

	const common = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	writer, err := sql.Open("sqlite", path+"?_txlock=immediate&_pragma=journal_mode(WAL)&"+common)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	reader, err := sql.Open("sqlite", path+"?"+common+"&_pragma=query_only(1)")
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Info("SQLite ledger store ready", "path", path)
	return &Store{dialect: SQLite, db: writer, reader: reader, logger: logger}, nil
}

// OpenPostgres connects to the PostgreSQL database at url and migrates it.
func OpenPostgres(ctx context.Context, url string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := RunMigrations(Postgres, url); err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Info("PostgreSQL ledger store ready")
	return &Store{dialect: Postgres, db: db, reader: db, logger: logger}, nil
}

func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	var errs []error
	if s.reader != nil && s.reader != s.db {
		errs = append(errs, s.reader.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, userID string, fn func(ledger.Tx) error) error {
	tx, err := s.reader.BeginTx(ctx, s.dialect.readOptions())
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqlTx{tx: tx, dialect: s.dialect, userID: userID, readOnly: true})
}

// bumpVersion is the first statement of every write transaction. On
// PostgreSQL the row lock it takes serializes writers of the same user.
const bumpVersion = `
INSERT INTO ledgers (user_id, version, base_currency, pin_hash)
VALUES (?, 1, ?, '')
ON CONFLICT (user_id) DO UPDATE SET version = ledgers.version + 1`

// Update runs fn in a write transaction and commits when fn succeeds.
func (s *Store) Update(ctx context.Context, userID string, fn func(ledger.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Rollback failed", log.FieldUserID, userID, log.FieldError, rbErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(bumpVersion), userID, core.DefaultBaseCurrency); err != nil {
		return fmt.Errorf("bump ledger version: %w", err)
	}
	if err := fn(&sqlTx{tx: tx, dialect: s.dialect, userID: userID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
