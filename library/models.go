package library

import (
	"database/sql"

	"github.com/doug-martin/goqu/v9"
)

// Author is the parent of every Book it wrote. Deleting an author deletes
// its books.
type Author struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Book represents a catalogued title and whether it is currently lent out.
// IsBorrowed is true iff exactly one open BorrowRecord references the book.
type Book struct {
	ID         int64  `db:"id" json:"id"`
	AuthorID   int64  `db:"author_id" json:"author_id"`
	Title      string `db:"title" json:"title"`
	Genre      string `db:"genre" json:"genre"`
	IsBorrowed bool   `db:"is_borrowed" json:"is_borrowed"`
}

// Patron is a registered borrower.
type Patron struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// BorrowRecord links a patron to a book for one lending period. Dates are
// stored as YYYY-MM-DD strings. A record without a return date is open.
type BorrowRecord struct {
	ID         int64          `db:"id" json:"id"`
	BookID     int64          `db:"book_id" json:"book_id"`
	BorrowerID int64          `db:"borrower_id" json:"borrower_id"`
	BorrowDate string         `db:"borrow_date" json:"borrow_date"`
	ReturnDate sql.NullString `db:"return_date" json:"-"`
}

// IsOpen reports whether the book of this record is still out.
func (r BorrowRecord) IsOpen() bool { return !r.ReturnDate.Valid }

// Loan joins an open record with the book it lends.
type Loan struct {
	Record BorrowRecord `json:"record"`
	Book   Book         `json:"book"`
}

// AuthorShelf is an author together with the books that reference it.
type AuthorShelf struct {
	Author Author `json:"author"`
	Books  []Book `json:"books"`
}

// CascadeResult reports the dependent rows a delete removed.
type CascadeResult struct {
	Books         int64 `json:"books"`
	BorrowRecords int64 `json:"borrow_records"`
}

// ---------------------------------------------------------------------------
// Entity plumbing
// ---------------------------------------------------------------------------

func (Author) Kind() Kind       { return KindAuthor }
func (Book) Kind() Kind         { return KindBook }
func (Patron) Kind() Kind       { return KindPatron }
func (BorrowRecord) Kind() Kind { return KindBorrowRecord }

func (a Author) PrimaryKey() int64       { return a.ID }
func (b Book) PrimaryKey() int64         { return b.ID }
func (p Patron) PrimaryKey() int64       { return p.ID }
func (r BorrowRecord) PrimaryKey() int64 { return r.ID }

// record returns the writable columns. The id column is left to the store.
func (a Author) record() goqu.Record {
	return goqu.Record{"name": a.Name}
}

func (b Book) record() goqu.Record {
	return goqu.Record{
		"author_id":   b.AuthorID,
		"title":       b.Title,
		"genre":       b.Genre,
		"is_borrowed": b.IsBorrowed,
	}
}

func (p Patron) record() goqu.Record {
	return goqu.Record{"name": p.Name, "email": p.Email}
}

func (r BorrowRecord) record() goqu.Record {
	var returned any
	if r.ReturnDate.Valid {
		returned = r.ReturnDate.String
	}
	return goqu.Record{
		"book_id":     r.BookID,
		"borrower_id": r.BorrowerID,
		"borrow_date": r.BorrowDate,
		"return_date": returned,
	}
}
