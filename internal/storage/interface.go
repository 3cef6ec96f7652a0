package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/json"
)

// ErrOutOfOrder is returned by Append when an entry does not extend the
// journal by exactly one.
var ErrOutOfOrder = errors.New("journal: entry out of order")

// Entry is one committed transaction. Seq starts at 1. Hash covers PrevHash
// and every other field, chaining the journal.
type Entry struct {
	Seq      uint64          `json:"seq" gorm:"primaryKey;autoIncrement:false"`
	Op       string          `json:"op" gorm:"not null"`
	Caller   domain.Identity `json:"caller" gorm:"not null;index"`
	Args     json.RawMessage `json:"args" gorm:"type:bytea"`
	Nonce    string          `json:"nonce,omitempty" gorm:"not null;default:''"`
	At       time.Time       `json:"at" gorm:"not null"`
	PrevHash string          `json:"prevHash"`
	Hash     string          `json:"hash" gorm:"uniqueIndex;not null"`
}

func (Entry) TableName() string { return "journal_entries" }

// PaginationArgs selects entries with Seq >= From. Limit <= 0 means no limit.
type PaginationArgs struct {
	From  uint64
	Limit int
}

// Journal is the append-only log the ledger commits to.
type Journal interface {
	Append(ctx context.Context, e Entry) error
	Entries(ctx context.Context, args PaginationArgs) ([]Entry, error)
	Height(ctx context.Context) (uint64, error)
}
