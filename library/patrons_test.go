package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_AddPatron_WithoutAt_FailsWithInvalidFormat(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.mgr.AddPatron(ctx, "Bob", "bob-no-at-sign")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "bob-no-at-sign")

	n, err := env.db.Count(ctx, KindPatron)
	require.NoError(t, err)
	assert.Zero(t, n, "no patron row may be created")
}

func Test_ValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"ann@x.com", true},
		{"@", true},
		{"a@b", true},
		{"", false},
		{"ann.x.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidFormat)
			}
		})
	}
}

func Test_AddPatron_AndGet(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	id, err := env.mgr.AddPatron(ctx, "Ann", "ann@x.com")
	require.NoError(t, err)

	p, err := env.mgr.GetPatron(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, Patron{ID: id, Name: "Ann", Email: "ann@x.com"}, *p)

	_, err = env.mgr.GetPatron(ctx, id+1)
	assert.ErrorIs(t, err, ErrNotFound)

	patrons, err := env.mgr.ListPatrons(ctx)
	require.NoError(t, err)
	assert.Len(t, patrons, 1)
}

func Test_DeletePatron_DestroysHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bookID, patronID := env.seed(t)

	_, err := env.mgr.Borrow(ctx, bookID, patronID)
	require.NoError(t, err)
	_, err = env.mgr.ReturnBook(ctx, bookID)
	require.NoError(t, err)
	_, err = env.mgr.Borrow(ctx, bookID, patronID)
	require.NoError(t, err)

	res, err := env.mgr.DeletePatron(ctx, patronID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.BorrowRecords)

	history, err := env.mgr.HistoryForPatron(ctx, patronID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.False(t, env.book(t, bookID).IsBorrowed)

	_, err = env.mgr.DeletePatron(ctx, patronID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Without an observer the registry still deletes, but the flag is left
// behind and the consistency check catches it.
func Test_DeletePatron_WithoutObserver_IsCaughtByConsistencyCheck(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bookID, patronID := env.seed(t)
	_, err := env.mgr.Borrow(ctx, bookID, patronID)
	require.NoError(t, err)

	bare := NewRegistry(env.db, nil)
	_, err = bare.DeletePatron(ctx, patronID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.mgr.CheckConsistency(ctx), ErrIntegrityViolation)
}
