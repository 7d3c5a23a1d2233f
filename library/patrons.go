package library

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CascadeObserver is told, inside the deleting transaction, which open
// borrow records a cascading delete is about to remove. The store's cascade
// drops the rows but knows nothing about Book.IsBorrowed.
type CascadeObserver interface {
	OpenRecordsCascaded(ctx context.Context, q Querier, open []BorrowRecord) error
}

// Registry manages patrons.
type Registry struct {
	store    Store
	observer CascadeObserver
	logger   *slog.Logger
}

// NewRegistry returns a Registry backed by store. observer may be nil only
// when nothing else maintains borrowed flags on the same store.
func NewRegistry(store Store, observer CascadeObserver, opts ...Option) *Registry {
	o := buildOptions(opts)
	return &Registry{store: store, observer: observer, logger: o.logger.With("component", "patrons")}
}

// ValidateEmail accepts any address containing "@".
func ValidateEmail(email string) error {
	if !strings.Contains(email, "@") {
		return &Error{Kind: ErrInvalidFormat, Entity: "patron", Value: "email " + strconv.Quote(email) + " lacks @"}
	}
	return nil
}

// AddPatron validates email and stores a new patron.
func (r *Registry) AddPatron(ctx context.Context, name, email string) (int64, error) {
	if err := ValidateEmail(email); err != nil {
		r.logger.WarnContext(ctx, "patron rejected", "error", err)
		return 0, err
	}
	id, err := r.store.Insert(ctx, Patron{Name: name, Email: email})
	if err != nil {
		return 0, storageFailure(err)
	}
	r.logger.InfoContext(ctx, "patron added", "patron_id", id)
	return id, nil
}

func (r *Registry) GetPatron(ctx context.Context, id int64) (*Patron, error) {
	var p Patron
	found, err := r.store.Get(ctx, &p, id)
	if err != nil {
		return nil, storageFailure(err)
	}
	if !found {
		return nil, notFound("patron", id)
	}
	return &p, nil
}

func (r *Registry) ListPatrons(ctx context.Context) ([]Patron, error) {
	var patrons []Patron
	if err := r.store.GetAll(ctx, KindPatron, &patrons); err != nil {
		return nil, storageFailure(err)
	}
	return patrons, nil
}

// DeletePatron removes the patron and all of its borrow records. Books the
// patron still had out become available again in the same transaction.
func (r *Registry) DeletePatron(ctx context.Context, id int64) (CascadeResult, error) {
	log := r.logger.With("op", "delete_patron", "op_id", uuid.NewString(), "patron_id", id)

	var res CascadeResult
	err := r.store.RunAtomic(ctx, func(q Querier) error {
		var p Patron
		found, err := q.Get(ctx, &p, id)
		if err != nil {
			return err
		}
		if !found {
			return notFound("patron", id)
		}

		if res.BorrowRecords, err = q.Count(ctx, KindBorrowRecord, byBorrower(id)); err != nil {
			return err
		}
		var open []BorrowRecord
		if err := q.GetAll(ctx, KindBorrowRecord, &open, byBorrower(id), isOpen()); err != nil {
			return err
		}
		if len(open) > 0 && r.observer != nil {
			if err := r.observer.OpenRecordsCascaded(ctx, q, open); err != nil {
				return err
			}
		}

		_, err = q.Delete(ctx, KindPatron, id)
		return err
	})
	if err != nil {
		err = storageFailure(err)
		log.WarnContext(ctx, "patron not deleted", "error", err)
		return CascadeResult{}, err
	}
	log.InfoContext(ctx, "patron deleted", "borrow_records", res.BorrowRecords)
	return res, nil
}
