package main

import (
	"fmt"
	"strconv"

	"library-ledger/library"

	"github.com/spf13/cobra"
)

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func (a *app) printCreated(entity string, id int64) error {
	if a.wantJSON() {
		return a.emitJSON(map[string]any{"id": id})
	}
	fmt.Fprintf(a.out, "%s added with ID %d\n", entity, id)
	return nil
}

func (a *app) printCascade(entity string, id int64, res library.CascadeResult) error {
	if a.wantJSON() {
		return a.emitJSON(res)
	}
	fmt.Fprintf(a.out, "%s %d deleted (%d books, %d borrow records removed)\n", entity, id, res.Books, res.BorrowRecords)
	return nil
}

// ------------------ Authors ------------------

func newAuthorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "author", Short: "Manage authors"}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.mgr.AddAuthor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printCreated("Author", id)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List authors with their book counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shelves, err := a.mgr.ListAuthorsWithBooks(cmd.Context())
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return a.emitJSON(shelves)
			}
			printAuthors(a.out, shelves)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <author-id>",
		Short: "Delete an author, its books and their borrow records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("author", args[0])
			if err != nil {
				return err
			}
			res, err := a.mgr.DeleteAuthor(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printCascade("Author", id, res)
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

// ------------------ Books ------------------

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage the catalog"}

	add := &cobra.Command{
		Use:   "add <author-id> <title> <genre>",
		Short: "Add a book by an existing author",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			authorID, err := parseID("author", args[0])
			if err != nil {
				return err
			}
			id, err := a.mgr.AddBook(cmd.Context(), authorID, args[1], args[2])
			if err != nil {
				return err
			}
			return a.printCreated("Book", id)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.mgr.ListBooks(cmd.Context())
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return a.emitJSON(books)
			}
			printBooks(a.out, books)
			return nil
		},
	}

	var (
		title, genre string
		authorID     int64
	)
	update := &cobra.Command{
		Use:   "update <book-id>",
		Short: "Change a book's title, genre or author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			var upd library.BookUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				upd.Title = &title
			}
			if flags.Changed("genre") {
				upd.Genre = &genre
			}
			if flags.Changed("author") {
				upd.AuthorID = &authorID
			}
			if err := a.mgr.UpdateBook(cmd.Context(), id, upd); err != nil {
				return err
			}
			b, err := a.mgr.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return a.emitJSON(b)
			}
			printBooks(a.out, []library.Book{*b})
			return nil
		},
	}
	update.Flags().StringVar(&title, "title", "", "new title")
	update.Flags().StringVar(&genre, "genre", "", "new genre")
	update.Flags().Int64Var(&authorID, "author", 0, "new author id")

	del := &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book and its borrow records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			res, err := a.mgr.DeleteBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printCascade("Book", id, res)
		},
	}

	byAuthor := &cobra.Command{
		Use:   "by-author <author-id>",
		Short: "List the books of one author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("author", args[0])
			if err != nil {
				return err
			}
			books := []library.Book{}
			for b, err := range a.mgr.BooksByAuthor(cmd.Context(), id) {
				if err != nil {
					return err
				}
				books = append(books, b)
			}
			if a.wantJSON() {
				return a.emitJSON(books)
			}
			printBooks(a.out, books)
			return nil
		},
	}

	cmd.AddCommand(add, list, update, del, byAuthor)
	return cmd
}

// ------------------ Patrons ------------------

func newPatronCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "patron", Short: "Manage patrons"}

	add := &cobra.Command{
		Use:   "add <name> <email>",
		Short: "Register a patron",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.mgr.AddPatron(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.printCreated("Patron", id)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List patrons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patrons, err := a.mgr.ListPatrons(cmd.Context())
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return a.emitJSON(patrons)
			}
			printPatrons(a.out, patrons)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <patron-id>",
		Short: "Delete a patron and their borrow history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patron", args[0])
			if err != nil {
				return err
			}
			res, err := a.mgr.DeletePatron(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printCascade("Patron", id, res)
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

// ------------------ Circulation ------------------

func newBorrowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <book-id> <patron-id>",
		Short: "Lend a book to a patron",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			patronID, err := parseID("patron", args[1])
			if err != nil {
				return err
			}
			recordID, err := a.mgr.Borrow(cmd.Context(), bookID, patronID)
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return a.emitJSON(map[string]any{"record_id": recordID})
			}
			fmt.Fprintf(a.out, "Book %d borrowed by patron %d (record %d)\n", bookID, patronID, recordID)
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <book-id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			date, err := a.mgr.ReturnBook(cmd.Context(), bookID)
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return a.emitJSON(map[string]any{"book_id": bookID, "return_date": date})
			}
			fmt.Fprintf(a.out, "Book %d returned on %s\n", bookID, date)
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <patron-id>",
		Short: "Show every borrow record of a patron",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patronID, err := parseID("patron", args[0])
			if err != nil {
				return err
			}
			records, err := a.mgr.HistoryForPatron(cmd.Context(), patronID)
			if err != nil {
				return err
			}
			if a.wantJSON() {
				views := make([]recordView, 0, len(records))
				for _, r := range records {
					views = append(views, viewRecord(r))
				}
				return a.emitJSON(views)
			}
			printHistory(a.out, records)
			return nil
		},
	}
}

func newLoansCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "loans <patron-id>",
		Short: "Show the books a patron currently has",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patronID, err := parseID("patron", args[0])
			if err != nil {
				return err
			}
			loans, err := a.mgr.OpenBorrowsForPatron(cmd.Context(), patronID)
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return a.emitJSON(loans)
			}
			printLoans(a.out, loans)
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that borrowed flags match open borrow records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.mgr.CheckConsistency(cmd.Context()); err != nil {
				return err
			}
			if a.wantJSON() {
				return a.emitJSON(map[string]any{"consistent": true})
			}
			fmt.Fprintln(a.out, "Ledger is consistent.")
			return nil
		},
	}
}
