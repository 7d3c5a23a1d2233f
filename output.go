package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"library-ledger/library"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wantJSON is true when --json is set or stdout is not a terminal.
func (a *app) wantJSON() bool {
	if a.jsonOut {
		return true
	}
	f, ok := a.out.(*os.File)
	return !ok || !term.IsTerminal(int(f.Fd()))
}

func (a *app) emitJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// recordView exposes the nullable return date as null or a string.
type recordView struct {
	ID         int64   `json:"id"`
	BookID     int64   `json:"book_id"`
	BorrowerID int64   `json:"borrower_id"`
	BorrowDate string  `json:"borrow_date"`
	ReturnDate *string `json:"return_date"`
}

func viewRecord(r library.BorrowRecord) recordView {
	v := recordView{ID: r.ID, BookID: r.BookID, BorrowerID: r.BorrowerID, BorrowDate: r.BorrowDate}
	if r.ReturnDate.Valid {
		d := r.ReturnDate.String
		v.ReturnDate = &d
	}
	return v
}

func printAuthors(w io.Writer, shelves []library.AuthorShelf) {
	if len(shelves) == 0 {
		fmt.Fprintln(w, "No authors in library.")
		return
	}
	fmt.Fprintf(w, "%-5s %-30s %s\n", "ID", "Name", "Books")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, s := range shelves {
		fmt.Fprintf(w, "%-5d %-30s %d\n", s.Author.ID, truncateString(s.Author.Name, 30), len(s.Books))
	}
}

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintf(w, "%-5s %-30s %-20s %-7s %s\n", "ID", "Title", "Genre", "Author", "Available")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, b := range books {
		availStr := "Yes"
		if b.IsBorrowed {
			availStr = "No"
		}
		fmt.Fprintf(w, "%-5d %-30s %-20s %-7d %s\n",
			b.ID,
			truncateString(b.Title, 30),
			truncateString(b.Genre, 20),
			b.AuthorID,
			availStr)
	}
}

func printPatrons(w io.Writer, patrons []library.Patron) {
	if len(patrons) == 0 {
		fmt.Fprintln(w, "No patrons registered.")
		return
	}
	fmt.Fprintf(w, "%-5s %-30s %s\n", "ID", "Name", "Email")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, p := range patrons {
		fmt.Fprintf(w, "%-5d %-30s %s\n", p.ID, truncateString(p.Name, 30), p.Email)
	}
}

func printHistory(w io.Writer, records []library.BorrowRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No borrow history.")
		return
	}
	fmt.Fprintf(w, "%-5s %-7s %-12s %s\n", "ID", "Book", "Borrowed", "Returned")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, r := range records {
		returned := "-"
		if r.ReturnDate.Valid {
			returned = r.ReturnDate.String
		}
		fmt.Fprintf(w, "%-5d %-7d %-12s %s\n", r.ID, r.BookID, r.BorrowDate, returned)
	}
}

func printLoans(w io.Writer, loans []library.Loan) {
	if len(loans) == 0 {
		fmt.Fprintln(w, "No books currently borrowed.")
		return
	}
	fmt.Fprintf(w, "%-7s %-30s %s\n", "Book", "Title", "Borrowed")
	fmt.Fprintln(w, strings.Repeat("-", 50))
	for _, l := range loans {
		fmt.Fprintf(w, "%-7d %-30s %s\n", l.Book.ID, truncateString(l.Book.Title, 30), l.Record.BorrowDate)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
