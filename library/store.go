package library

import (
	"context"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// Kind names the table an entity is stored in.
type Kind string

const (
	KindAuthor       Kind = "authors"
	KindBook         Kind = "books"
	KindPatron       Kind = "patrons"
	KindBorrowRecord Kind = "borrow_records"
)

// Entity is a row type persisted by a Store. Only the types in this package
// implement it.
type Entity interface {
	Kind() Kind
	PrimaryKey() int64
	record() goqu.Record
}

// Querier is the set of entity operations available both on a Store and
// inside one of its atomic scopes.
type Querier interface {
	// Insert stores e under a freshly allocated id and returns that id.
	// Ids are monotonic and never reused after deletion.
	Insert(ctx context.Context, e Entity) (int64, error)
	// Update overwrites the row with e's primary key.
	Update(ctx context.Context, e Entity) error
	// Delete removes a row, applying the schema's cascades. It reports
	// whether a row existed.
	Delete(ctx context.Context, kind Kind, id int64) (bool, error)
	// Get loads the row with id into dest, which must be a pointer.
	Get(ctx context.Context, dest Entity, id int64) (bool, error)
	// GetAll loads every matching row into dest (a pointer to a slice),
	// ordered by id ascending.
	GetAll(ctx context.Context, kind Kind, dest any, where ...exp.Expression) error
	// Count returns the number of matching rows.
	Count(ctx context.Context, kind Kind, where ...exp.Expression) (int64, error)
}

// Store is the Entity Store the managers are built on. It must enforce the
// foreign keys of the schema and run fn atomically in RunAtomic, rolling back
// when fn returns an error or panics.
type Store interface {
	Querier
	RunAtomic(ctx context.Context, fn func(q Querier) error) error
	Close() error
}

// Predicates shared by the managers.
func idIs(id int64) exp.Expression             { return goqu.C("id").Eq(id) }
func byAuthor(authorID int64) exp.Expression   { return goqu.C("author_id").Eq(authorID) }
func byBook(bookID int64) exp.Expression       { return goqu.C("book_id").Eq(bookID) }
func byBorrower(patronID int64) exp.Expression { return goqu.C("borrower_id").Eq(patronID) }
func isOpen() exp.Expression                   { return goqu.C("return_date").IsNull() }

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type options struct {
	logger *slog.Logger
	clock  func() time.Time
	dbOpts []DatabaseOption
}

// Option configures the catalog, registry, lender and manager.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source used for borrow and return dates.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithDatabaseOptions passes options through to NewDatabase when the
// manager opens its own database.
func WithDatabaseOptions(dbOpts ...DatabaseOption) Option {
	return func(o *options) {
		o.dbOpts = append(o.dbOpts, dbOpts...)
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
