package inmemory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/UkralStul/agora/internal/storage"
)

// Journal implements storage.Journal in memory.
type Journal struct {
	mu      sync.RWMutex
	entries []storage.Entry
}

func New() *Journal {
	return &Journal{}
}

func (j *Journal) Append(ctx context.Context, e storage.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if height := uint64(len(j.entries)); e.Seq != height+1 {
		return errors.Wrapf(storage.ErrOutOfOrder, "seq %d after height %d", e.Seq, height)
	}
	e.Args = append([]byte(nil), e.Args...)
	j.entries = append(j.entries, e)
	return nil
}

func (j *Journal) Entries(ctx context.Context, args storage.PaginationArgs) ([]storage.Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	start := args.From
	if start == 0 {
		start = 1
	}
	if start > uint64(len(j.entries)) {
		return []storage.Entry{}, nil
	}
	end := uint64(len(j.entries))
	if args.Limit > 0 && start-1+uint64(args.Limit) < end {
		end = start - 1 + uint64(args.Limit)
	}
	out := make([]storage.Entry, end-(start-1))
	copy(out, j.entries[start-1:end])
	return out, nil
}

func (j *Journal) Height(ctx context.Context) (uint64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return uint64(len(j.entries)), nil
}
