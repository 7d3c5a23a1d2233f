package library

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Lender owns the borrow/return state machine of every book:
//
//	Available --Borrow--> Borrowed --ReturnBook--> Available
//
// A borrowed book has exactly one open BorrowRecord and IsBorrowed set; an
// available book has neither. Every transition writes the record and the flag
// in one transaction, and any stored state that breaks this pairing is
// reported as ErrIntegrityViolation rather than repaired.
type Lender struct {
	store  Store
	locks  *keyedMutex
	clock  func() time.Time
	logger *slog.Logger
}

var _ CascadeObserver = (*Lender)(nil)

// NewLender returns a Lender backed by store.
func NewLender(store Store, opts ...Option) *Lender {
	o := buildOptions(opts)
	return &Lender{
		store:  store,
		locks:  newKeyedMutex(),
		clock:  o.clock,
		logger: o.logger.With("component", "lending"),
	}
}

func (l *Lender) today() string {
	return l.clock().Format(time.DateOnly)
}

// Borrow lends bookID to patronID and returns the new record id. Checks run
// in order: the book exists, the book is not out, the patron exists.
func (l *Lender) Borrow(ctx context.Context, bookID, patronID int64) (int64, error) {
	unlock := l.locks.lock(bookID)
	defer unlock()

	log := l.logger.With("op", "borrow", "op_id", uuid.NewString(), "book_id", bookID, "patron_id", patronID)

	var recordID int64
	date := l.today()
	err := l.store.RunAtomic(ctx, func(q Querier) error {
		book, open, err := loadLendingState(ctx, q, bookID)
		if err != nil {
			return err
		}
		if open != nil {
			return &Error{Kind: ErrAlreadyBorrowed, Entity: "book", ID: bookID}
		}

		var p Patron
		found, err := q.Get(ctx, &p, patronID)
		if err != nil {
			return err
		}
		if !found {
			return notFound("patron", patronID)
		}

		recordID, err = q.Insert(ctx, BorrowRecord{
			BookID:     bookID,
			BorrowerID: patronID,
			BorrowDate: date,
		})
		if err != nil {
			return err
		}
		book.IsBorrowed = true
		return q.Update(ctx, *book)
	})
	if err != nil {
		err = storageFailure(err)
		l.logFailure(ctx, log, "borrow rejected", err)
		return 0, err
	}
	log.InfoContext(ctx, "book borrowed", "record_id", recordID, "borrow_date", date)
	return recordID, nil
}

// ReturnBook closes the open record of bookID and returns the return date.
func (l *Lender) ReturnBook(ctx context.Context, bookID int64) (string, error) {
	unlock := l.locks.lock(bookID)
	defer unlock()

	log := l.logger.With("op", "return", "op_id", uuid.NewString(), "book_id", bookID)

	date := l.today()
	err := l.store.RunAtomic(ctx, func(q Querier) error {
		book, open, err := loadLendingState(ctx, q, bookID)
		if err != nil {
			return err
		}
		if open == nil {
			return &Error{Kind: ErrNoActiveBorrow, Entity: "book", ID: bookID}
		}

		open.ReturnDate = sql.NullString{String: date, Valid: true}
		if err := q.Update(ctx, *open); err != nil {
			return err
		}
		book.IsBorrowed = false
		return q.Update(ctx, *book)
	})
	if err != nil {
		err = storageFailure(err)
		l.logFailure(ctx, log, "return rejected", err)
		return "", err
	}
	log.InfoContext(ctx, "book returned", "return_date", date)
	return date, nil
}

// HistoryForPatron returns every record of patronID, open and closed, in id
// order. A patron without records, or an unknown one, yields an empty slice.
func (l *Lender) HistoryForPatron(ctx context.Context, patronID int64) ([]BorrowRecord, error) {
	records := []BorrowRecord{}
	if err := l.store.GetAll(ctx, KindBorrowRecord, &records, byBorrower(patronID)); err != nil {
		return nil, storageFailure(err)
	}
	return records, nil
}

// OpenBorrowsForPatron joins each open record of patronID with its book.
// Both are read in one transaction from the live store.
func (l *Lender) OpenBorrowsForPatron(ctx context.Context, patronID int64) ([]Loan, error) {
	loans := []Loan{}
	err := l.store.RunAtomic(ctx, func(q Querier) error {
		var open []BorrowRecord
		if err := q.GetAll(ctx, KindBorrowRecord, &open, byBorrower(patronID), isOpen()); err != nil {
			return err
		}
		for _, rec := range open {
			var b Book
			found, err := q.Get(ctx, &b, rec.BookID)
			if err != nil {
				return err
			}
			if !found {
				return integrityViolation(rec.BookID, "open record %d references a missing book", rec.ID)
			}
			loans = append(loans, Loan{Record: rec, Book: b})
		}
		return nil
	})
	if err != nil {
		return nil, storageFailure(err)
	}
	return loans, nil
}

// CheckConsistency verifies for every book that IsBorrowed is set iff exactly
// one open record exists. The first offending book is reported.
func (l *Lender) CheckConsistency(ctx context.Context) error {
	err := l.store.RunAtomic(ctx, func(q Querier) error {
		var books []Book
		if err := q.GetAll(ctx, KindBook, &books); err != nil {
			return err
		}
		var open []BorrowRecord
		if err := q.GetAll(ctx, KindBorrowRecord, &open, isOpen()); err != nil {
			return err
		}
		openPerBook := make(map[int64]int, len(open))
		for _, rec := range open {
			openPerBook[rec.BookID]++
		}
		for _, b := range books {
			if err := checkPairing(b, openPerBook[b.ID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = storageFailure(err)
		l.logger.ErrorContext(ctx, "consistency check failed", "error", err)
		return err
	}
	return nil
}

// OpenRecordsCascaded makes the books of open records that are about to be
// deleted available again.
func (l *Lender) OpenRecordsCascaded(ctx context.Context, q Querier, open []BorrowRecord) error {
	for _, rec := range open {
		book, current, err := loadLendingState(ctx, q, rec.BookID)
		if err != nil {
			return err
		}
		if current == nil || current.ID != rec.ID {
			return integrityViolation(rec.BookID, "record %d is not the open record of the book", rec.ID)
		}
		book.IsBorrowed = false
		if err := q.Update(ctx, *book); err != nil {
			return err
		}
		l.logger.InfoContext(ctx, "book released by cascade", "book_id", rec.BookID, "record_id", rec.ID)
	}
	return nil
}

// loadLendingState reads a book and its open record, if any, and checks that
// the two agree. A missing book is ErrNotFound.
func loadLendingState(ctx context.Context, q Querier, bookID int64) (*Book, *BorrowRecord, error) {
	var b Book
	found, err := q.Get(ctx, &b, bookID)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, notFound("book", bookID)
	}

	var open []BorrowRecord
	if err := q.GetAll(ctx, KindBorrowRecord, &open, byBook(bookID), isOpen()); err != nil {
		return nil, nil, err
	}
	if err := checkPairing(b, len(open)); err != nil {
		return nil, nil, err
	}
	if len(open) == 0 {
		return &b, nil, nil
	}
	return &b, &open[0], nil
}

func checkPairing(b Book, openRecords int) error {
	switch {
	case openRecords > 1:
		return integrityViolation(b.ID, "%d open borrow records", openRecords)
	case b.IsBorrowed && openRecords == 0:
		return integrityViolation(b.ID, "flagged borrowed without an open record")
	case !b.IsBorrowed && openRecords == 1:
		return integrityViolation(b.ID, "open record exists but book is flagged available")
	}
	return nil
}

func (l *Lender) logFailure(ctx context.Context, log *slog.Logger, msg string, err error) {
	switch KindName(err) {
	case "IntegrityViolation", "StorageFailure":
		log.ErrorContext(ctx, msg, "error", err)
	default:
		log.WarnContext(ctx, msg, "error", err)
	}
}
