package library

import (
	"context"
	"iter"
	"log/slog"

	"github.com/google/uuid"
)

// Catalog manages authors and books.
type Catalog struct {
	store  Store
	logger *slog.Logger
}

// NewCatalog returns a Catalog backed by store.
func NewCatalog(store Store, opts ...Option) *Catalog {
	o := buildOptions(opts)
	return &Catalog{store: store, logger: o.logger.With("component", "catalog")}
}

// BookUpdate lists the book fields to change. Nil fields are left alone.
type BookUpdate struct {
	Title    *string
	Genre    *string
	AuthorID *int64
}

// ------------------ Authors ------------------

// AddAuthor stores a new author and returns its id.
func (c *Catalog) AddAuthor(ctx context.Context, name string) (int64, error) {
	id, err := c.store.Insert(ctx, Author{Name: name})
	if err != nil {
		return 0, storageFailure(err)
	}
	c.logger.InfoContext(ctx, "author added", "author_id", id)
	return id, nil
}

func (c *Catalog) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	var a Author
	found, err := c.store.Get(ctx, &a, id)
	if err != nil {
		return nil, storageFailure(err)
	}
	if !found {
		return nil, notFound("author", id)
	}
	return &a, nil
}

func (c *Catalog) ListAuthors(ctx context.Context) ([]Author, error) {
	var authors []Author
	if err := c.store.GetAll(ctx, KindAuthor, &authors); err != nil {
		return nil, storageFailure(err)
	}
	return authors, nil
}

// ListAuthorsWithBooks returns every author with its books, both ordered by id.
// Authors without books get an empty shelf.
func (c *Catalog) ListAuthorsWithBooks(ctx context.Context) ([]AuthorShelf, error) {
	var shelves []AuthorShelf
	err := c.store.RunAtomic(ctx, func(q Querier) error {
		var authors []Author
		if err := q.GetAll(ctx, KindAuthor, &authors); err != nil {
			return err
		}
		var books []Book
		if err := q.GetAll(ctx, KindBook, &books); err != nil {
			return err
		}
		byAuthorID := make(map[int64][]Book, len(authors))
		for _, b := range books {
			byAuthorID[b.AuthorID] = append(byAuthorID[b.AuthorID], b)
		}
		shelves = make([]AuthorShelf, 0, len(authors))
		for _, a := range authors {
			shelves = append(shelves, AuthorShelf{Author: a, Books: byAuthorID[a.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, storageFailure(err)
	}
	return shelves, nil
}

// DeleteAuthor removes the author together with its books and every borrow
// record of those books, in one transaction.
func (c *Catalog) DeleteAuthor(ctx context.Context, id int64) (CascadeResult, error) {
	log := c.logger.With("op", "delete_author", "op_id", uuid.NewString(), "author_id", id)

	var res CascadeResult
	err := c.store.RunAtomic(ctx, func(q Querier) error {
		var a Author
		found, err := q.Get(ctx, &a, id)
		if err != nil {
			return err
		}
		if !found {
			return notFound("author", id)
		}

		var books []Book
		if err := q.GetAll(ctx, KindBook, &books, byAuthor(id)); err != nil {
			return err
		}
		res.Books = int64(len(books))
		for _, b := range books {
			n, err := q.Count(ctx, KindBorrowRecord, byBook(b.ID))
			if err != nil {
				return err
			}
			res.BorrowRecords += n
		}

		if _, err := q.Delete(ctx, KindAuthor, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		err = storageFailure(err)
		log.WarnContext(ctx, "author not deleted", "error", err)
		return CascadeResult{}, err
	}
	log.InfoContext(ctx, "author deleted", "books", res.Books, "borrow_records", res.BorrowRecords)
	return res, nil
}

// ------------------ Books ------------------

// AddBook stores a new, available book for an existing author.
func (c *Catalog) AddBook(ctx context.Context, authorID int64, title, genre string) (int64, error) {
	var id int64
	err := c.store.RunAtomic(ctx, func(q Querier) error {
		n, err := q.Count(ctx, KindAuthor, idIs(authorID))
		if err != nil {
			return err
		}
		if n == 0 {
			return invalidReference("author", authorID)
		}
		id, err = q.Insert(ctx, Book{AuthorID: authorID, Title: title, Genre: genre})
		return err
	})
	if err != nil {
		err = storageFailure(err)
		c.logger.WarnContext(ctx, "book not added", "author_id", authorID, "error", err)
		return 0, err
	}
	c.logger.InfoContext(ctx, "book added", "book_id", id, "author_id", authorID)
	return id, nil
}

func (c *Catalog) GetBook(ctx context.Context, id int64) (*Book, error) {
	var b Book
	found, err := c.store.Get(ctx, &b, id)
	if err != nil {
		return nil, storageFailure(err)
	}
	if !found {
		return nil, notFound("book", id)
	}
	return &b, nil
}

func (c *Catalog) ListBooks(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := c.store.GetAll(ctx, KindBook, &books); err != nil {
		return nil, storageFailure(err)
	}
	return books, nil
}

// UpdateBook changes title, genre and author of a book. A new author must
// exist. The borrowed flag is owned by the lending engine and never changes here.
func (c *Catalog) UpdateBook(ctx context.Context, id int64, upd BookUpdate) error {
	err := c.store.RunAtomic(ctx, func(q Querier) error {
		var b Book
		found, err := q.Get(ctx, &b, id)
		if err != nil {
			return err
		}
		if !found {
			return notFound("book", id)
		}
		if upd.AuthorID != nil && *upd.AuthorID != b.AuthorID {
			n, err := q.Count(ctx, KindAuthor, idIs(*upd.AuthorID))
			if err != nil {
				return err
			}
			if n == 0 {
				return invalidReference("author", *upd.AuthorID)
			}
			b.AuthorID = *upd.AuthorID
		}
		if upd.Title != nil {
			b.Title = *upd.Title
		}
		if upd.Genre != nil {
			b.Genre = *upd.Genre
		}
		return q.Update(ctx, b)
	})
	if err != nil {
		err = storageFailure(err)
		c.logger.WarnContext(ctx, "book not updated", "book_id", id, "error", err)
		return err
	}
	c.logger.InfoContext(ctx, "book updated", "book_id", id)
	return nil
}

// DeleteBook removes a book and all of its borrow records, open or closed.
func (c *Catalog) DeleteBook(ctx context.Context, id int64) (CascadeResult, error) {
	log := c.logger.With("op", "delete_book", "op_id", uuid.NewString(), "book_id", id)

	var res CascadeResult
	err := c.store.RunAtomic(ctx, func(q Querier) error {
		n, err := q.Count(ctx, KindBorrowRecord, byBook(id))
		if err != nil {
			return err
		}
		deleted, err := q.Delete(ctx, KindBook, id)
		if err != nil {
			return err
		}
		if !deleted {
			return notFound("book", id)
		}
		res = CascadeResult{Books: 1, BorrowRecords: n}
		return nil
	})
	if err != nil {
		err = storageFailure(err)
		log.WarnContext(ctx, "book not deleted", "error", err)
		return CascadeResult{}, err
	}
	log.InfoContext(ctx, "book deleted", "borrow_records", res.BorrowRecords)
	return res, nil
}

// BooksByAuthor yields the author's books in id order. Nothing is read until
// the sequence is ranged over, and every range reads the store afresh.
func (c *Catalog) BooksByAuthor(ctx context.Context, authorID int64) iter.Seq2[Book, error] {
	return func(yield func(Book, error) bool) {
		var books []Book
		if err := c.store.GetAll(ctx, KindBook, &books, byAuthor(authorID)); err != nil {
			yield(Book{}, storageFailure(err))
			return
		}
		for _, b := range books {
			if !yield(b, nil) {
				return
			}
		}
	}
}
