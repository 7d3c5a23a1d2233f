package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReopenKeepsSchemaAndData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lib.db")
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	if _, err := db.Insert(context.Background(), Author{Name: "Orwell"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	db, err = NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	n, err := db.Count(context.Background(), KindAuthor)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 author after reopen, got %d", n)
	}
}

func TestIDsAreNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)

	first, _ := db.Insert(ctx, Author{Name: "A"})
	second, _ := db.Insert(ctx, Author{Name: "B"})
	if first != 1 || second != 2 {
		t.Fatalf("want ids 1 and 2, got %d and %d", first, second)
	}
	if _, err := db.Delete(ctx, KindAuthor, first); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Delete(ctx, KindAuthor, second); err != nil {
		t.Fatalf("delete: %v", err)
	}

	third, err := db.Insert(ctx, Author{Name: "C"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if third != 3 {
		t.Fatalf("want id 3 after deleting 1 and 2, got %d", third)
	}
}

func TestGetMissingRow(t *testing.T) {
	db := tempDB(t)
	var b Book
	found, err := db.Get(context.Background(), &b, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatalf("expected no book 42")
	}
}

func TestGetAllOrdersByIDAndFilters(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	a1, _ := db.Insert(ctx, Author{Name: "A1"})
	a2, _ := db.Insert(ctx, Author{Name: "A2"})
	db.Insert(ctx, Book{AuthorID: a1, Title: "one", Genre: "g"})
	db.Insert(ctx, Book{AuthorID: a2, Title: "two", Genre: "g"})
	db.Insert(ctx, Book{AuthorID: a1, Title: "three", Genre: "g"})

	var books []Book
	if err := db.GetAll(ctx, KindBook, &books, byAuthor(a1)); err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(books) != 2 || books[0].Title != "one" || books[1].Title != "three" {
		t.Fatalf("unexpected books: %+v", books)
	}
	if books[0].IsBorrowed {
		t.Fatalf("new book should not be borrowed")
	}
}

func TestBorrowRecordNullReturnDateRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	a, _ := db.Insert(ctx, Author{Name: "A"})
	b, _ := db.Insert(ctx, Book{AuthorID: a, Title: "T", Genre: "G"})
	p, _ := db.Insert(ctx, Patron{Name: "P", Email: "p@x"})

	id, err := db.Insert(ctx, BorrowRecord{BookID: b, BorrowerID: p, BorrowDate: "2024-03-01"})
	if err != nil {
		t.Fatalf("insert record: %v", err)
	}
	open, _ := db.Count(ctx, KindBorrowRecord, isOpen())
	if open != 1 {
		t.Fatalf("want 1 open record, got %d", open)
	}

	var rec BorrowRecord
	if _, err := db.Get(ctx, &rec, id); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !rec.IsOpen() {
		t.Fatalf("record should be open")
	}
	rec.ReturnDate.String, rec.ReturnDate.Valid = "2024-03-05", true
	if err := db.Update(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}
	open, _ = db.Count(ctx, KindBorrowRecord, isOpen())
	if open != 0 {
		t.Fatalf("want 0 open records, got %d", open)
	}
}

// TestForeignKeyCascades checks the declarative constraints the managers rely on.
func TestForeignKeyCascades(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	a, _ := db.Insert(ctx, Author{Name: "A"})
	b1, _ := db.Insert(ctx, Book{AuthorID: a, Title: "B1", Genre: "G"})
	b2, _ := db.Insert(ctx, Book{AuthorID: a, Title: "B2", Genre: "G"})
	p, _ := db.Insert(ctx, Patron{Name: "P", Email: "p@x"})
	db.Insert(ctx, BorrowRecord{BookID: b1, BorrowerID: p, BorrowDate: "2024-01-01"})
	db.Insert(ctx, BorrowRecord{BookID: b2, BorrowerID: p, BorrowDate: "2024-01-01"})

	// Unknown author.
	if _, err := db.Insert(ctx, Book{AuthorID: 99, Title: "x", Genre: "y"}); err == nil {
		t.Fatalf("expected FK failure for unknown author")
	}

	// authors.id is update-restricted while books reference it.
	if _, err := db.db.ExecContext(ctx, `UPDATE authors SET id=50 WHERE id=?`, a); err == nil {
		t.Fatalf("expected restrict on author id update")
	}

	// books.id updates cascade to borrow records.
	if _, err := db.db.ExecContext(ctx, `UPDATE books SET id=70 WHERE id=?`, b1); err != nil {
		t.Fatalf("update book id: %v", err)
	}
	n, _ := db.Count(ctx, KindBorrowRecord, byBook(70))
	if n != 1 {
		t.Fatalf("want record to follow book id, got %d", n)
	}

	if _, err := db.Delete(ctx, KindAuthor, a); err != nil {
		t.Fatalf("delete author: %v", err)
	}
	books, _ := db.Count(ctx, KindBook)
	records, _ := db.Count(ctx, KindBorrowRecord)
	if books != 0 || records != 0 {
		t.Fatalf("cascade left %d books and %d records", books, records)
	}
}

func TestPatronEmailCheckConstraint(t *testing.T) {
	db := tempDB(t)
	if _, err := db.Insert(context.Background(), Patron{Name: "Bob", Email: "bob-no-at-sign"}); err == nil {
		t.Fatalf("expected CHECK constraint failure")
	}
}

func TestRunAtomicRollsBack(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	boom := errors.New("boom")

	err := db.RunAtomic(ctx, func(q Querier) error {
		if _, err := q.Insert(ctx, Author{Name: "ghost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	n, _ := db.Count(ctx, KindAuthor)
	if n != 0 {
		t.Fatalf("rollback left %d authors", n)
	}

	err = db.RunAtomic(ctx, func(q Querier) error {
		_, err := q.Insert(ctx, Author{Name: "kept"})
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	n, _ = db.Count(ctx, KindAuthor)
	if n != 1 {
		t.Fatalf("want 1 author after commit, got %d", n)
	}
}

func TestDeleteReportsMissingRow(t *testing.T) {
	db := tempDB(t)
	deleted, err := db.Delete(context.Background(), KindPatron, 7)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted {
		t.Fatalf("nothing should have been deleted")
	}
}
