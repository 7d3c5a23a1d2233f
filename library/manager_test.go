package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newManager(t *testing.T, opts ...Option) *LibraryManager {
	dir := t.TempDir()
	mgr, err := NewLibraryManager(filepath.Join(dir, "lib.db"), opts...)
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

// TestOrwellScenario runs author → book → patron → borrow → return against a
// fresh database file.
func TestOrwellScenario(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t, WithDatabaseOptions(WithBusyTimeout(2*time.Second)))

	authorID, err := mgr.AddAuthor(ctx, "Orwell")
	if err != nil || authorID != 1 {
		t.Fatalf("add author: id=%d err=%v", authorID, err)
	}
	bookID, err := mgr.AddBook(ctx, authorID, "1984", "Dystopia")
	if err != nil || bookID != 1 {
		t.Fatalf("add book: id=%d err=%v", bookID, err)
	}
	patronID, err := mgr.AddPatron(ctx, "Ann", "ann@x.com")
	if err != nil || patronID != 1 {
		t.Fatalf("add patron: id=%d err=%v", patronID, err)
	}

	if _, err := mgr.Borrow(ctx, bookID, patronID); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	b, _ := mgr.GetBook(ctx, bookID)
	if !b.IsBorrowed {
		t.Fatalf("book should be borrowed")
	}

	today := time.Now().Format(time.DateOnly)
	returned, err := mgr.ReturnBook(ctx, bookID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	// Tolerate the test straddling midnight.
	if returned != today && returned != time.Now().Format(time.DateOnly) {
		t.Fatalf("return date %q, want today", returned)
	}
	b, _ = mgr.GetBook(ctx, bookID)
	if b.IsBorrowed {
		t.Fatalf("book should be available")
	}
	if err := mgr.CheckConsistency(ctx); err != nil {
		t.Fatalf("consistency: %v", err)
	}
}

func TestInvalidEmailCreatesNoPatron(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	if _, err := mgr.AddPatron(ctx, "Bob", "bob-no-at-sign"); KindName(err) != "InvalidFormat" {
		t.Fatalf("want InvalidFormat, got %v", err)
	}
	patrons, err := mgr.ListPatrons(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(patrons) != 0 {
		t.Fatalf("want no patrons, got %d", len(patrons))
	}
}
