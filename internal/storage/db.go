// ABOUTME: SQL database connection, lifecycle, and transaction scopes.
// ABOUTME: SQLite via modernc.org/sqlite by default; PostgreSQL via pgx when configured.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"
)

// Dialect selects SQL syntax differences between engines.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Store is the transactional entry point to the schema.
// All reads and writes go through View or Update.
type Store interface {
	// View runs fn inside a read transaction.
	View(ctx context.Context, fn func(Repository) error) error
	// Update runs fn inside a serialized write transaction.
	// The transaction commits only if fn returns nil.
	Update(ctx context.Context, fn func(Repository) error) error
	Close() error
}

// DB wraps the SQL database connection.
type DB struct {
	db      *sql.DB
	dbPath  string
	dialect Dialect

	// writeMu makes this process a single logical writer.
	writeMu sync.Mutex
	now     func() time.Time
}

var _ Store = (*DB)(nil)

// Open opens or creates a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &DB{db: db, dbPath: dbPath, dialect: DialectSQLite, now: time.Now}

	if err := d.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	// Set file permissions
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		_ = db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	return d, nil
}

// sqliteDSN applies pragmas per connection so every pooled connection gets them.
func sqliteDSN(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + dbPath + "?" + q.Encode()
}

// DataDir returns the default data directory under $XDG_DATA_HOME.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "ultratrainer")
}

// DBFileName is the sqlite database file inside the data directory.
const DBFileName = "ultratrainer.db"

// Dialect reports which SQL engine backs this DB.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Ping verifies database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// View runs fn inside a read transaction that is always rolled back.
func (d *DB) View(ctx context.Context, fn func(Repository) error) error {
	tx, err := d.db.BeginTx(ctx, d.txOptions(true))
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(d.repo(tx))
}

// Update runs fn inside a write transaction. Writers are serialized in-process,
// and SQLite lock conflicts with other processes are retried a few times.
func (d *DB) Update(ctx context.Context, fn func(Repository) error) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 3),
		ctx,
	)

	return backoff.Retry(func() error {
		err := d.update(ctx, fn)
		if err != nil && !IsConflictError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (d *DB) update(ctx context.Context, fn func(Repository) error) error {
	tx, err := d.db.BeginTx(ctx, d.txOptions(false))
	if err != nil {
		return fmt.Errorf("begin write transaction: %w", err)
	}

	if err := fn(d.repo(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (d *DB) txOptions(readOnly bool) *sql.TxOptions {
	if d.dialect != DialectPostgres {
		// SQLite serializes writers itself; it rejects non-default isolation levels.
		return nil
	}
	if readOnly {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

func (d *DB) repo(tx *sql.Tx) *txRepo {
	return &txRepo{tx: tx, dialect: d.dialect, now: d.now}
}

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a goal status change would move backwards.
var ErrInvalidTransition = errors.New("invalid goal status transition")

// ErrInvalidRecord is returned when a write carries a value outside its domain.
var ErrInvalidRecord = errors.New("invalid record")
