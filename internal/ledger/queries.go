package ledger

import (
	"context"

	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/storage"
)

// Reads take the read lock and return copies.

func (l *Ledger) Profile(id domain.Identity) (domain.UserProfile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.users.Profile(id)
}

func (l *Ledger) Profiles(ids []domain.Identity) map[domain.Identity]domain.UserProfile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.users.Profiles(ids)
}

func (l *Ledger) IsRegistered(id domain.Identity) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.users.IsRegistered(id)
}

func (l *Ledger) Post(id uint64) (domain.Post, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.content.Post(id)
}

func (l *Ledger) PostsByAuthor(author domain.Identity) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.content.PostsByAuthor(author)
}

func (l *Ledger) Comments(postID uint64) ([]domain.Comment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.content.Comments(postID)
}

func (l *Ledger) HasLiked(postID uint64, id domain.Identity) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.content.HasLiked(postID, id)
}

func (l *Ledger) ModerationVote(postID uint64) (domain.ModerationVote, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mod.Vote(postID)
}

func (l *Ledger) Proposal(id uint64) (domain.Proposal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gov.Proposal(id)
}

func (l *Ledger) HasVoted(proposalID uint64, id domain.Identity) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gov.HasVoted(proposalID, id)
}

func (l *Ledger) HasRole(role domain.Role, id domain.Identity) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.roles.HasRole(role, id)
}

func (l *Ledger) Parameters() domain.Parameters {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return *l.params
}

// Height is the sequence number of the last commit, 0 when empty.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.height
}

func (l *Ledger) Halted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.halted
}

// Entries reads the journal directly; it is append-only and safe to read
// without the ledger lock.
func (l *Ledger) Entries(ctx context.Context, args storage.PaginationArgs) ([]storage.Entry, error) {
	return l.journal.Entries(ctx, args)
}
