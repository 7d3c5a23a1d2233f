package library

import (
	"context"
	"iter"
)

// LibraryManager is a thin façade over the catalog, the patron registry and
// the lending engine, keeping CLI code simple. All three share one store.
type LibraryManager struct {
	store   Store
	catalog *Catalog
	patrons *Registry
	lending *Lender
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, opts ...Option) (*LibraryManager, error) {
	o := buildOptions(opts)
	db, err := NewDatabase(dbPath, o.dbOpts...)
	if err != nil {
		return nil, err
	}
	return NewLibraryManagerWithStore(db, opts...), nil
}

// NewLibraryManagerWithStore wires the components onto an already open store.
// The registry reports cascaded open records to the lender.
func NewLibraryManagerWithStore(store Store, opts ...Option) *LibraryManager {
	lending := NewLender(store, opts...)
	return &LibraryManager{
		store:   store,
		catalog: NewCatalog(store, opts...),
		patrons: NewRegistry(store, lending, opts...),
		lending: lending,
	}
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

// ------------------ Authors ------------------

func (lm *LibraryManager) AddAuthor(ctx context.Context, name string) (int64, error) {
	return lm.catalog.AddAuthor(ctx, name)
}

func (lm *LibraryManager) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	return lm.catalog.GetAuthor(ctx, id)
}

func (lm *LibraryManager) ListAuthors(ctx context.Context) ([]Author, error) {
	return lm.catalog.ListAuthors(ctx)
}

func (lm *LibraryManager) ListAuthorsWithBooks(ctx context.Context) ([]AuthorShelf, error) {
	return lm.catalog.ListAuthorsWithBooks(ctx)
}

func (lm *LibraryManager) DeleteAuthor(ctx context.Context, id int64) (CascadeResult, error) {
	return lm.catalog.DeleteAuthor(ctx, id)
}

// ------------------ Books ------------------

func (lm *LibraryManager) AddBook(ctx context.Context, authorID int64, title, genre string) (int64, error) {
	return lm.catalog.AddBook(ctx, authorID, title, genre)
}

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	return lm.catalog.GetBook(ctx, id)
}

func (lm *LibraryManager) ListBooks(ctx context.Context) ([]Book, error) {
	return lm.catalog.ListBooks(ctx)
}

func (lm *LibraryManager) UpdateBook(ctx context.Context, id int64, upd BookUpdate) error {
	return lm.catalog.UpdateBook(ctx, id, upd)
}

func (lm *LibraryManager) DeleteBook(ctx context.Context, id int64) (CascadeResult, error) {
	return lm.catalog.DeleteBook(ctx, id)
}

func (lm *LibraryManager) BooksByAuthor(ctx context.Context, authorID int64) iter.Seq2[Book, error] {
	return lm.catalog.BooksByAuthor(ctx, authorID)
}

// ------------------ Patrons ------------------

func (lm *LibraryManager) AddPatron(ctx context.Context, name, email string) (int64, error) {
	return lm.patrons.AddPatron(ctx, name, email)
}

func (lm *LibraryManager) GetPatron(ctx context.Context, id int64) (*Patron, error) {
	return lm.patrons.GetPatron(ctx, id)
}

func (lm *LibraryManager) ListPatrons(ctx context.Context) ([]Patron, error) {
	return lm.patrons.ListPatrons(ctx)
}

func (lm *LibraryManager) DeletePatron(ctx context.Context, id int64) (CascadeResult, error) {
	return lm.patrons.DeletePatron(ctx, id)
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) Borrow(ctx context.Context, bookID, patronID int64) (int64, error) {
	return lm.lending.Borrow(ctx, bookID, patronID)
}

// ReturnBook returns the book and yields the return date.
func (lm *LibraryManager) ReturnBook(ctx context.Context, bookID int64) (string, error) {
	return lm.lending.ReturnBook(ctx, bookID)
}

func (lm *LibraryManager) HistoryForPatron(ctx context.Context, patronID int64) ([]BorrowRecord, error) {
	return lm.lending.HistoryForPatron(ctx, patronID)
}

func (lm *LibraryManager) OpenBorrowsForPatron(ctx context.Context, patronID int64) ([]Loan, error) {
	return lm.lending.OpenBorrowsForPatron(ctx, patronID)
}

func (lm *LibraryManager) CheckConsistency(ctx context.Context) error {
	return lm.lending.CheckConsistency(ctx)
}
