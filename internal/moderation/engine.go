// Package moderation drives flagged posts through community removal votes.
package moderation

import (
	"time"

	"github.com/UkralStul/agora/internal/domain"
)

type Posts interface {
	Post(id uint64) (domain.Post, error)
	Transition(postID uint64, to domain.ModerationStatus) error
}

type Registrations interface {
	IsRegistered(id domain.Identity) bool
}

type RoleChecker interface {
	HasRole(role domain.Role, id domain.Identity) bool
}

// Proposals is the governance surface a moderation vote is built on.
type Proposals interface {
	OpenRemoval(proposer domain.Identity, postID uint64, now time.Time) uint64
	Proposal(id uint64) (domain.Proposal, error)
	Decide(forWeight, againstWeight uint64) bool
	Settle(proposalID uint64, passed bool, actor domain.Identity, now time.Time) error
}

// Engine owns moderation votes, keyed by proposal id. Not safe for
// concurrent use.
type Engine struct {
	posts     Posts
	users     Registrations
	roles     RoleChecker
	proposals Proposals
	events    domain.EventSink

	votes  map[uint64]*domain.ModerationVote
	latest map[uint64]uint64 // post id -> proposal id of its most recent vote
}

func New(posts Posts, users Registrations, roles RoleChecker, proposals Proposals, events domain.EventSink) *Engine {
	if events == nil {
		events = domain.NopSink{}
	}
	return &Engine{
		posts:     posts,
		users:     users,
		roles:     roles,
		proposals: proposals,
		events:    events,
		votes:     make(map[uint64]*domain.ModerationVote),
		latest:    make(map[uint64]uint64),
	}
}

// Flag moves a post from None to Flagged. One flag is enough.
func (e *Engine) Flag(postID uint64, flagger domain.Identity, now time.Time) error {
	post, err := e.posts.Post(postID)
	if err != nil {
		return err
	}
	if !e.users.IsRegistered(flagger) {
		return domain.Errorf(domain.KindNotRegistered, "%s is not registered", flagger)
	}
	if post.ModerationStatus != domain.ModerationNone {
		return domain.Errorf(domain.KindInvalidState, "post %d is %s", postID, post.ModerationStatus)
	}
	if err := e.posts.Transition(postID, domain.ModerationFlagged); err != nil {
		return err
	}
	e.events.Record(domain.NewEvent(domain.EventPostFlagged, "post", postID, flagger, now, nil))
	return nil
}

// StartVote opens a removal vote on a flagged post and returns the id of the
// backing RemoveContent proposal.
func (e *Engine) StartVote(postID uint64, moderator domain.Identity, now time.Time) (uint64, error) {
	if !e.roles.HasRole(domain.RoleModerator, moderator) {
		return 0, domain.Errorf(domain.KindUnauthorized, "%s is not a moderator", moderator)
	}
	post, err := e.posts.Post(postID)
	if err != nil {
		return 0, err
	}
	if post.ModerationStatus != domain.ModerationFlagged {
		return 0, domain.Errorf(domain.KindInvalidState, "post %d is %s", postID, post.ModerationStatus)
	}
	if err := e.posts.Transition(postID, domain.ModerationUnderVote); err != nil {
		return 0, err
	}

	proposalID := e.proposals.OpenRemoval(moderator, postID, now)
	p, err := e.proposals.Proposal(proposalID)
	if err != nil {
		return 0, err
	}
	e.votes[proposalID] = &domain.ModerationVote{
		ProposalID: proposalID,
		PostID:     postID,
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
	}
	e.latest[postID] = proposalID

	e.events.Record(domain.NewEvent(domain.EventModerationStarted, "post", postID, moderator, now, map[string]any{
		"proposalId": proposalID,
		"endTime":    p.EndTime,
	}))
	return proposalID, nil
}

// Execute settles the latest vote on a post once its deadline has passed.
func (e *Engine) Execute(postID uint64, caller domain.Identity, now time.Time) error {
	proposalID, ok := e.latest[postID]
	if !ok {
		return domain.Errorf(domain.KindNotFound, "no moderation vote for post %d", postID)
	}
	return e.execute(e.votes[proposalID], caller, now)
}

func (e *Engine) execute(v *domain.ModerationVote, caller domain.Identity, now time.Time) error {
	if v.Executed {
		return domain.Errorf(domain.KindAlreadyExecuted, "moderation vote %d already executed", v.ProposalID)
	}
	if now.Before(v.EndTime) {
		return domain.Errorf(domain.KindDeadlineNotReached, "moderation vote %d closes at %s", v.ProposalID, v.EndTime.Format(time.RFC3339))
	}
	p, err := e.proposals.Proposal(v.ProposalID)
	if err != nil {
		return err
	}
	if p.Status != domain.ProposalActive {
		return domain.Errorf(domain.KindAlreadyExecuted, "proposal %d is %s", v.ProposalID, p.Status)
	}

	passed := e.proposals.Decide(v.ForRemovalWeight, v.AgainstRemovalWeight)
	to, kind := domain.ModerationNone, domain.EventPostRestored
	if passed {
		to, kind = domain.ModerationRemoved, domain.EventPostRemoved
	}
	if err := e.posts.Transition(v.PostID, to); err != nil {
		return err
	}
	v.Executed = true

	e.events.Record(domain.NewEvent(domain.EventModerationExecuted, "post", v.PostID, caller, now, map[string]any{
		"proposalId":           v.ProposalID,
		"passed":               passed,
		"forRemovalWeight":     v.ForRemovalWeight,
		"againstRemovalWeight": v.AgainstRemovalWeight,
	}))
	e.events.Record(domain.NewEvent(kind, "post", v.PostID, caller, now, nil))
	return e.proposals.Settle(v.ProposalID, passed, caller, now)
}

// Vote returns the most recent moderation vote on a post.
func (e *Engine) Vote(postID uint64) (domain.ModerationVote, error) {
	proposalID, ok := e.latest[postID]
	if !ok {
		return domain.ModerationVote{}, domain.Errorf(domain.KindNotFound, "no moderation vote for post %d", postID)
	}
	return *e.votes[proposalID], nil
}

// Linked reports whether proposalID backs a moderation vote.
func (e *Engine) Linked(proposalID uint64) bool {
	_, ok := e.votes[proposalID]
	return ok
}

// MirrorVote adds a cast already accepted by governance to the removal tally.
func (e *Engine) MirrorVote(proposalID uint64, support bool, weight uint64) {
	v, ok := e.votes[proposalID]
	if !ok {
		return
	}
	if support {
		v.ForRemovalWeight += weight
		return
	}
	v.AgainstRemovalWeight += weight
}

// ExecuteRemoval settles the vote backing proposalID. It is the governance
// path into the same transition Execute performs.
func (e *Engine) ExecuteRemoval(proposalID uint64, actor domain.Identity, now time.Time) error {
	v, ok := e.votes[proposalID]
	if !ok {
		return domain.Errorf(domain.KindNotFound, "proposal %d has no moderation vote", proposalID)
	}
	return e.execute(v, actor, now)
}
