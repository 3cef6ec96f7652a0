package domain

import "time"

// Identity is an opaque caller reference. Over the wire it is the hex encoded
// ed25519 public key that signed the transaction.
type Identity string

// UserType classifies a registered profile.
type UserType string

const (
	UserTypeIndividual   UserType = "individual"
	UserTypeJournalist   UserType = "journalist"
	UserTypeOrganization UserType = "organization"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeIndividual, UserTypeJournalist, UserTypeOrganization:
		return true
	}
	return false
}

// UserProfile is created once per identity and only ever mutated by verification.
type UserProfile struct {
	Identity     Identity  `json:"identity"`
	Username     string    `json:"username"`
	MetadataRef  string    `json:"metadataRef"`
	UserType     UserType  `json:"userType"`
	IsVerified   bool      `json:"isVerified"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// ModerationStatus is the lifecycle position of a post.
type ModerationStatus string

const (
	ModerationNone      ModerationStatus = "none"
	ModerationFlagged   ModerationStatus = "flagged"
	ModerationUnderVote ModerationStatus = "under_vote"
	ModerationRemoved   ModerationStatus = "removed"
)

// CanTransition reports whether s -> to is an edge of the moderation graph:
// None -> Flagged -> UnderVote -> {Removed, None}.
func (s ModerationStatus) CanTransition(to ModerationStatus) bool {
	switch s {
	case ModerationNone:
		return to == ModerationFlagged
	case ModerationFlagged:
		return to == ModerationUnderVote
	case ModerationUnderVote:
		return to == ModerationRemoved || to == ModerationNone
	}
	return false
}

// Post holds references to externally stored content. The store never
// interprets ContentRef or MetadataRef.
type Post struct {
	ID               uint64           `json:"id"`
	Author           Identity         `json:"author"`
	ContentRef       string           `json:"contentRef"`
	MetadataRef      string           `json:"metadataRef"`
	Category         string           `json:"category"`
	CreatedAt        time.Time        `json:"createdAt"`
	LikeCount        uint64           `json:"likeCount"`
	CommentCount     uint64           `json:"commentCount"`
	ModerationStatus ModerationStatus `json:"moderationStatus"`
}

// Comment is append-only; comments are never deleted.
type Comment struct {
	ID        uint64    `json:"id"`
	PostID    uint64    `json:"postId"`
	Author    Identity  `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProposalStatus is Active until execution, then Executed or Rejected forever.
type ProposalStatus string

const (
	ProposalActive   ProposalStatus = "active"
	ProposalExecuted ProposalStatus = "executed"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a timed, votable unit of potential state change.
type Proposal struct {
	ID             uint64         `json:"id"`
	Proposer       Identity       `json:"proposer"`
	Payload        Payload        `json:"-"`
	StartTime      time.Time      `json:"startTime"`
	EndTime        time.Time      `json:"endTime"`
	ForWeight      uint64         `json:"forWeight"`
	AgainstWeight  uint64         `json:"againstWeight"`
	Status         ProposalStatus `json:"status"`
	DescriptionRef string         `json:"descriptionRef"`
}

// Kind is derived from the payload variant.
func (p Proposal) Kind() ProposalKind {
	if p.Payload == nil {
		return ""
	}
	return p.Payload.Kind()
}

// ModerationVote mirrors the weights of its RemoveContent proposal.
type ModerationVote struct {
	ProposalID           uint64    `json:"proposalId"`
	PostID               uint64    `json:"postId"`
	StartTime            time.Time `json:"startTime"`
	EndTime              time.Time `json:"endTime"`
	ForRemovalWeight     uint64    `json:"forRemovalWeight"`
	AgainstRemovalWeight uint64    `json:"againstRemovalWeight"`
	Executed             bool      `json:"executed"`
}

// Role is a named capability.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleModerator
}
