package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/agora/internal/storage"
)

// newTestJournal creates a journal holding n entries.
func newTestJournal(t *testing.T, n int) *Journal {
	t.Helper()
	j := New()
	for i := 1; i <= n; i++ {
		err := j.Append(context.Background(), storage.Entry{
			Seq:    uint64(i),
			Op:     "register",
			Caller: "alice",
			Args:   []byte(`{}`),
			At:     time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		})
		require.NoError(t, err)
	}
	return j
}

func TestJournal_AppendInOrder(t *testing.T) {
	j := newTestJournal(t, 2)
	ctx := context.Background()

	err := j.Append(ctx, storage.Entry{Seq: 2})
	assert.ErrorIs(t, err, storage.ErrOutOfOrder)
	err = j.Append(ctx, storage.Entry{Seq: 4})
	assert.ErrorIs(t, err, storage.ErrOutOfOrder)

	height, err := j.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), height)
}

func TestJournal_EntriesPagination(t *testing.T) {
	j := newTestJournal(t, 5)
	ctx := context.Background()

	all, err := j.Entries(ctx, storage.PaginationArgs{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, uint64(1), all[0].Seq)

	page, err := j.Entries(ctx, storage.PaginationArgs{From: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(2), page[0].Seq)
	assert.Equal(t, uint64(3), page[1].Seq)

	tail, err := j.Entries(ctx, storage.PaginationArgs{From: 4, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, tail, 2)

	none, err := j.Entries(ctx, storage.PaginationArgs{From: 6})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJournal_EntriesAreCopies(t *testing.T) {
	j := newTestJournal(t, 1)
	ctx := context.Background()

	got, err := j.Entries(ctx, storage.PaginationArgs{})
	require.NoError(t, err)
	got[0].Op = "tampered"

	again, err := j.Entries(ctx, storage.PaginationArgs{})
	require.NoError(t, err)
	assert.Equal(t, "register", again[0].Op)
}
