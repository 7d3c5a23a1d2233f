package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const defaultBusyTimeout = 5 * time.Second

// Database is the SQLite-backed Store. Reads always hit the database; nothing
// is cached between calls.
type Database struct {
	db *sqlx.DB
	querier
}

var _ Store = (*Database)(nil)

// DatabaseOption configures NewDatabase.
type DatabaseOption func(*databaseConfig)

type databaseConfig struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets how long a connection waits for a competing writer.
func WithBusyTimeout(d time.Duration) DatabaseOption {
	return func(c *databaseConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string, opts ...DatabaseOption) (*Database, error) {
	cfg := databaseConfig{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Foreign keys are per connection, so they go into the DSN. Immediate
	// transactions take the write lock at BEGIN: a check followed by a write
	// can't interleave with another writer.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1&_txlock=immediate",
		dbPath, cfg.busyTimeout.Milliseconds())
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db, querier: newQuerier(db)}, nil
}

// Close closes the DB.
func (d *Database) Close() error {
	return d.db.Close()
}

// RunAtomic runs fn inside one transaction. The transaction commits only if
// fn returns nil.
func (d *Database) RunAtomic(ctx context.Context, fn func(q Querier) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newQuerier(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS authors (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            author_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE ON UPDATE RESTRICT,
            title TEXT NOT NULL,
            genre TEXT NOT NULL,
            is_borrowed BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS patrons (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL CHECK (instr(email, '@') > 0)
        );`,
		`CREATE TABLE IF NOT EXISTS borrow_records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE ON UPDATE CASCADE,
            borrower_id INTEGER NOT NULL REFERENCES patrons(id) ON DELETE CASCADE ON UPDATE RESTRICT,
            borrow_date TEXT NOT NULL,
            return_date TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_books_author ON books(author_id);`,
		`CREATE INDEX IF NOT EXISTS idx_borrow_records_book ON borrow_records(book_id, return_date);`,
		`CREATE INDEX IF NOT EXISTS idx_borrow_records_borrower ON borrow_records(borrower_id);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// CRUD helpers
// ---------------------------------------------------------------------------

// querier runs goqu-built statements against a *sqlx.DB or a *sqlx.Tx.
type querier struct {
	ext     sqlx.ExtContext
	dialect goqu.DialectWrapper
}

func newQuerier(ext sqlx.ExtContext) querier {
	return querier{ext: ext, dialect: goqu.Dialect("sqlite3")}
}

func (q querier) Insert(ctx context.Context, e Entity) (int64, error) {
	query, args, err := q.dialect.Insert(string(e.Kind())).Rows(e.record()).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert into %s: %w", e.Kind(), err)
	}
	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q querier) Update(ctx context.Context, e Entity) error {
	query, args, err := q.dialect.Update(string(e.Kind())).
		Set(e.record()).
		Where(goqu.C("id").Eq(e.PrimaryKey())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update of %s: %w", e.Kind(), err)
	}
	_, err = q.ext.ExecContext(ctx, query, args...)
	return err
}

func (q querier) Delete(ctx context.Context, kind Kind, id int64) (bool, error) {
	query, args, err := q.dialect.Delete(string(kind)).Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete from %s: %w", kind, err)
	}
	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (q querier) Get(ctx context.Context, dest Entity, id int64) (bool, error) {
	query, args, err := q.dialect.From(string(dest.Kind())).Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build select from %s: %w", dest.Kind(), err)
	}
	err = sqlx.GetContext(ctx, q.ext, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (q querier) GetAll(ctx context.Context, kind Kind, dest any, where ...exp.Expression) error {
	query, args, err := q.dialect.From(string(kind)).
		Where(where...).
		Order(goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select from %s: %w", kind, err)
	}
	return sqlx.SelectContext(ctx, q.ext, dest, query, args...)
}

func (q querier) Count(ctx context.Context, kind Kind, where ...exp.Expression) (int64, error) {
	query, args, err := q.dialect.From(string(kind)).
		Select(goqu.COUNT(goqu.Star())).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count of %s: %w", kind, err)
	}
	var n int64
	if err := sqlx.GetContext(ctx, q.ext, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}
