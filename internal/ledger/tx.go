package ledger

import (
	"time"

	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/json"
)

// Op names a state-changing operation.
type Op string

const (
	OpRegister              Op = "register"
	OpVerify                Op = "verify"
	OpCreatePost            Op = "createPost"
	OpAddComment            Op = "addComment"
	OpLike                  Op = "like"
	OpUnlike                Op = "unlike"
	OpFlagContent           Op = "flagContent"
	OpStartModerationVote   Op = "startModerationVote"
	OpExecuteModerationVote Op = "executeModerationVote"
	OpCreateProposal        Op = "createProposal"
	OpCastVote              Op = "castVote"
	OpExecuteProposal       Op = "executeProposal"
	OpGrantRole             Op = "grantRole"
	OpRevokeRole            Op = "revokeRole"
)

// Tx is one transaction: who calls what with which arguments. A non-empty
// Nonce is accepted once per caller for the life of the journal.
type Tx struct {
	Op     Op              `json:"op"`
	Caller domain.Identity `json:"caller"`
	Args   json.RawMessage `json:"args"`
	Nonce  string          `json:"nonce,omitempty"`
}

// Receipt describes a committed transaction. ID is set for operations that
// allocate one (posts, comments, proposals).
type Receipt struct {
	Seq  uint64    `json:"seq"`
	ID   *uint64   `json:"id,omitempty"`
	At   time.Time `json:"at"`
	Hash string    `json:"hash"`
}

type RegisterArgs struct {
	Username    string          `json:"username"`
	MetadataRef string          `json:"metadataRef"`
	UserType    domain.UserType `json:"userType"`
}

type VerifyArgs struct {
	Target domain.Identity `json:"target"`
}

type CreatePostArgs struct {
	ContentRef  string `json:"contentRef"`
	MetadataRef string `json:"metadataRef"`
	Category    string `json:"category"`
}

type CommentArgs struct {
	PostID  uint64 `json:"postId"`
	Content string `json:"content"`
}

// PostArgs is shared by like, unlike, flagContent, startModerationVote and
// executeModerationVote.
type PostArgs struct {
	PostID uint64 `json:"postId"`
}

// CreateProposalArgs carries the payload in its {"kind", "data"} form.
type CreateProposalArgs struct {
	Payload        json.RawMessage `json:"payload"`
	DescriptionRef string          `json:"descriptionRef"`
}

type CastVoteArgs struct {
	ProposalID uint64 `json:"proposalId"`
	Support    bool   `json:"support"`
	Weight     uint64 `json:"weight"`
}

type ProposalArgs struct {
	ProposalID uint64 `json:"proposalId"`
}

type RoleArgs struct {
	Role   domain.Role     `json:"role"`
	Target domain.Identity `json:"target"`
}

// NewTx encodes args into a transaction.
func NewTx(op Op, caller domain.Identity, args any) (Tx, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return Tx{}, domain.Errorf(domain.KindInvalidArgument, "encode %s args: %v", op, err)
	}
	return Tx{Op: op, Caller: caller, Args: raw}, nil
}

func decode[T any](tx Tx) (T, error) {
	var args T
	if len(tx.Args) == 0 {
		return args, domain.Errorf(domain.KindInvalidArgument, "%s: missing arguments", tx.Op)
	}
	if err := json.Unmarshal(tx.Args, &args); err != nil {
		return args, domain.Errorf(domain.KindInvalidArgument, "%s: malformed arguments: %v", tx.Op, err)
	}
	return args, nil
}
