package ledger

import (
	"context"

	"github.com/UkralStul/agora/internal/domain"
)

// Typed wrappers over Submit, one per operation.

func (l *Ledger) submit(ctx context.Context, op Op, caller domain.Identity, args any) (Receipt, error) {
	tx, err := NewTx(op, caller, args)
	if err != nil {
		return Receipt{}, err
	}
	return l.Submit(ctx, tx)
}

func (l *Ledger) Register(ctx context.Context, caller domain.Identity, args RegisterArgs) (Receipt, error) {
	return l.submit(ctx, OpRegister, caller, args)
}

func (l *Ledger) Verify(ctx context.Context, caller, target domain.Identity) (Receipt, error) {
	return l.submit(ctx, OpVerify, caller, VerifyArgs{Target: target})
}

func (l *Ledger) CreatePost(ctx context.Context, caller domain.Identity, args CreatePostArgs) (Receipt, error) {
	return l.submit(ctx, OpCreatePost, caller, args)
}

func (l *Ledger) AddComment(ctx context.Context, caller domain.Identity, postID uint64, content string) (Receipt, error) {
	return l.submit(ctx, OpAddComment, caller, CommentArgs{PostID: postID, Content: content})
}

func (l *Ledger) Like(ctx context.Context, caller domain.Identity, postID uint64) (Receipt, error) {
	return l.submit(ctx, OpLike, caller, PostArgs{PostID: postID})
}

func (l *Ledger) Unlike(ctx context.Context, caller domain.Identity, postID uint64) (Receipt, error) {
	return l.submit(ctx, OpUnlike, caller, PostArgs{PostID: postID})
}

func (l *Ledger) FlagContent(ctx context.Context, caller domain.Identity, postID uint64) (Receipt, error) {
	return l.submit(ctx, OpFlagContent, caller, PostArgs{PostID: postID})
}

func (l *Ledger) StartModerationVote(ctx context.Context, caller domain.Identity, postID uint64) (Receipt, error) {
	return l.submit(ctx, OpStartModerationVote, caller, PostArgs{PostID: postID})
}

func (l *Ledger) ExecuteModerationVote(ctx context.Context, caller domain.Identity, postID uint64) (Receipt, error) {
	return l.submit(ctx, OpExecuteModerationVote, caller, PostArgs{PostID: postID})
}

func (l *Ledger) CreateProposal(ctx context.Context, caller domain.Identity, payload domain.Payload, descriptionRef string) (Receipt, error) {
	raw, err := domain.EncodePayload(payload)
	if err != nil {
		return Receipt{}, err
	}
	return l.submit(ctx, OpCreateProposal, caller, CreateProposalArgs{Payload: raw, DescriptionRef: descriptionRef})
}

func (l *Ledger) CastVote(ctx context.Context, caller domain.Identity, args CastVoteArgs) (Receipt, error) {
	return l.submit(ctx, OpCastVote, caller, args)
}

func (l *Ledger) ExecuteProposal(ctx context.Context, caller domain.Identity, proposalID uint64) (Receipt, error) {
	return l.submit(ctx, OpExecuteProposal, caller, ProposalArgs{ProposalID: proposalID})
}

func (l *Ledger) GrantRole(ctx context.Context, caller domain.Identity, role domain.Role, target domain.Identity) (Receipt, error) {
	return l.submit(ctx, OpGrantRole, caller, RoleArgs{Role: role, Target: target})
}

func (l *Ledger) RevokeRole(ctx context.Context, caller domain.Identity, role domain.Role, target domain.Identity) (Receipt, error) {
	return l.submit(ctx, OpRevokeRole, caller, RoleArgs{Role: role, Target: target})
}
