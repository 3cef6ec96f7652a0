// Package governance runs weighted, timed proposals and applies their effects.
package governance

import (
	"math/bits"
	"time"

	"github.com/UkralStul/agora/internal/domain"
)

// Roles is the part of the role authority an executed proposal may touch.
type Roles interface {
	Apply(role domain.Role, target domain.Identity, grant bool, actor domain.Identity, now time.Time)
}

type Registrations interface {
	IsRegistered(id domain.Identity) bool
}

// RemovalHook links RemoveContent proposals to their moderation votes. The
// moderation engine implements it.
type RemovalHook interface {
	Linked(proposalID uint64) bool
	MirrorVote(proposalID uint64, support bool, weight uint64)
	ExecuteRemoval(proposalID uint64, actor domain.Identity, now time.Time) error
}

// SupplySource reports the total voting supply. When one is configured the
// quorum becomes supply-relative.
type SupplySource interface {
	TotalSupply() uint64
}

type castKey struct {
	proposalID uint64
	voter      domain.Identity
}

// Engine owns proposals and vote casts. Not safe for concurrent use.
type Engine struct {
	roles  Roles
	users  Registrations
	params *domain.Parameters
	events domain.EventSink
	hook   RemovalHook
	supply SupplySource

	proposals []*domain.Proposal
	casts     map[castKey]bool
}

func New(roles Roles, users Registrations, params *domain.Parameters, events domain.EventSink) *Engine {
	if events == nil {
		events = domain.NopSink{}
	}
	return &Engine{
		roles:  roles,
		users:  users,
		params: params,
		events: events,
		casts:  make(map[castKey]bool),
	}
}

// SetRemovalHook must be called before any RemoveContent proposal is opened.
func (e *Engine) SetRemovalHook(h RemovalHook) { e.hook = h }

func (e *Engine) SetSupplySource(s SupplySource) { e.supply = s }

// Parameters returns a copy of the live platform parameters.
func (e *Engine) Parameters() domain.Parameters { return *e.params }

// CreateProposal opens a general proposal. RemoveContent proposals can only
// be opened by the moderation engine.
func (e *Engine) CreateProposal(proposer domain.Identity, payload domain.Payload, descriptionRef string, now time.Time) (uint64, error) {
	if !e.users.IsRegistered(proposer) {
		return 0, domain.Errorf(domain.KindNotRegistered, "%s is not registered", proposer)
	}
	if payload == nil {
		return 0, domain.Errorf(domain.KindInvalidArgument, "proposal payload is required")
	}
	if payload.Kind() == domain.KindRemoveContent {
		return 0, domain.Errorf(domain.KindInvalidArgument, "content removal is opened by starting a moderation vote")
	}
	if err := payload.Validate(); err != nil {
		return 0, err
	}
	return e.open(proposer, payload, descriptionRef, now), nil
}

// OpenRemoval opens the RemoveContent proposal backing a moderation vote.
// The caller has already checked the moderator and the post.
func (e *Engine) OpenRemoval(proposer domain.Identity, postID uint64, now time.Time) uint64 {
	return e.open(proposer, domain.RemoveContent{PostID: postID}, "", now)
}

func (e *Engine) open(proposer domain.Identity, payload domain.Payload, descriptionRef string, now time.Time) uint64 {
	id := uint64(len(e.proposals))
	e.proposals = append(e.proposals, &domain.Proposal{
		ID:             id,
		Proposer:       proposer,
		Payload:        payload,
		StartTime:      now,
		EndTime:        now.Add(e.params.VoteDuration),
		Status:         domain.ProposalActive,
		DescriptionRef: descriptionRef,
	})
	e.events.Record(domain.NewEvent(domain.EventProposalCreated, "proposal", id, proposer, now, map[string]any{
		"kind": string(payload.Kind()),
	}))
	return id
}

// CastVote records one weighted vote. The cast is recorded before any
// weight moves.
func (e *Engine) CastVote(proposalID uint64, voter domain.Identity, support bool, weight uint64, now time.Time) error {
	p, err := e.proposal(proposalID)
	if err != nil {
		return err
	}
	if p.Status != domain.ProposalActive {
		return domain.Errorf(domain.KindInvalidState, "proposal %d is %s", proposalID, p.Status)
	}
	if !now.Before(p.EndTime) {
		return domain.Errorf(domain.KindDeadlineFailed, "voting on proposal %d closed at %s", proposalID, p.EndTime.Format(time.RFC3339))
	}
	if !e.users.IsRegistered(voter) {
		return domain.Errorf(domain.KindNotRegistered, "%s is not registered", voter)
	}
	key := castKey{proposalID: proposalID, voter: voter}
	if e.casts[key] {
		return domain.Errorf(domain.KindAlreadyVoted, "%s already voted on proposal %d", voter, proposalID)
	}
	tally := &p.AgainstWeight
	if support {
		tally = &p.ForWeight
	}
	if _, carry := bits.Add64(*tally, weight, 0); carry != 0 {
		return domain.Errorf(domain.KindInvalidArgument, "vote weight overflows proposal %d tally", proposalID)
	}
	removal := p.Kind() == domain.KindRemoveContent
	if removal && (e.hook == nil || !e.hook.Linked(proposalID)) {
		return domain.Errorf(domain.KindInvalidState, "proposal %d has no moderation vote", proposalID)
	}

	e.casts[key] = true
	*tally += weight
	if removal {
		e.hook.MirrorVote(proposalID, support, weight)
	}
	e.events.Record(domain.NewEvent(domain.EventVoteCast, "proposal", proposalID, voter, now, map[string]any{
		"support": support,
		"weight":  weight,
	}))
	return nil
}

// ExecuteProposal settles a proposal once its deadline has passed. Any
// identity may call it.
func (e *Engine) ExecuteProposal(caller domain.Identity, proposalID uint64, now time.Time) error {
	p, err := e.proposal(proposalID)
	if err != nil {
		return err
	}
	if p.Status != domain.ProposalActive {
		return domain.Errorf(domain.KindAlreadyExecuted, "proposal %d is %s", proposalID, p.Status)
	}
	if now.Before(p.EndTime) {
		return domain.Errorf(domain.KindDeadlineNotReached, "proposal %d closes at %s", proposalID, p.EndTime.Format(time.RFC3339))
	}

	if _, ok := p.Payload.(domain.RemoveContent); ok {
		if e.hook == nil {
			return domain.Errorf(domain.KindInvalidState, "proposal %d has no moderation vote", proposalID)
		}
		return e.hook.ExecuteRemoval(proposalID, caller, now)
	}

	passed := e.Decide(p.ForWeight, p.AgainstWeight)
	if passed {
		if err := e.apply(p, caller, now); err != nil {
			return err
		}
	}
	return e.Settle(proposalID, passed, caller, now)
}

func (e *Engine) apply(p *domain.Proposal, actor domain.Identity, now time.Time) error {
	switch payload := p.Payload.(type) {
	case domain.UpdateParameters:
		if err := e.params.Set(payload.Name, payload.Value); err != nil {
			return err
		}
		e.events.Record(domain.NewEvent(domain.EventParametersUpdated, "proposal", p.ID, actor, now, map[string]any{
			"name":  string(payload.Name),
			"value": payload.Value,
		}))
	case domain.GrantRole:
		e.roles.Apply(payload.Role, payload.Target, true, actor, now)
	case domain.RevokeRole:
		e.roles.Apply(payload.Role, payload.Target, false, actor, now)
	default:
		return domain.Errorf(domain.KindInvalidState, "proposal %d has no executable payload", p.ID)
	}
	return nil
}

// Settle moves an active proposal to Executed or Rejected.
func (e *Engine) Settle(proposalID uint64, passed bool, actor domain.Identity, now time.Time) error {
	p, err := e.proposal(proposalID)
	if err != nil {
		return err
	}
	if p.Status != domain.ProposalActive {
		return domain.Errorf(domain.KindAlreadyExecuted, "proposal %d is %s", proposalID, p.Status)
	}
	kind := domain.EventProposalRejected
	p.Status = domain.ProposalRejected
	if passed {
		kind = domain.EventProposalExecuted
		p.Status = domain.ProposalExecuted
	}
	e.events.Record(domain.NewEvent(kind, "proposal", proposalID, actor, now, map[string]any{
		"forWeight":     p.ForWeight,
		"againstWeight": p.AgainstWeight,
	}))
	return nil
}

// Decide is the single quorum and majority rule for every vote. Quorum is
// nonzero participation, or total*100 >= supply*quorumPercentage when a
// supply source is configured. Majority is strict, so ties fail.
func (e *Engine) Decide(forWeight, againstWeight uint64) bool {
	total, carry := bits.Add64(forWeight, againstWeight, 0)
	if total == 0 && carry == 0 {
		return false
	}
	if e.supply != nil {
		if supply := e.supply.TotalSupply(); supply > 0 {
			hi, lo := bits.Mul64(total, 100)
			hi += carry * 100
			needHi, needLo := bits.Mul64(supply, e.params.QuorumPercentage)
			if hi < needHi || (hi == needHi && lo < needLo) {
				return false
			}
		}
	}
	return forWeight > againstWeight
}

func (e *Engine) Proposal(id uint64) (domain.Proposal, error) {
	p, err := e.proposal(id)
	if err != nil {
		return domain.Proposal{}, err
	}
	return *p, nil
}

func (e *Engine) HasVoted(proposalID uint64, voter domain.Identity) bool {
	return e.casts[castKey{proposalID: proposalID, voter: voter}]
}

func (e *Engine) proposal(id uint64) (*domain.Proposal, error) {
	if id >= uint64(len(e.proposals)) {
		return nil, domain.Errorf(domain.KindNotFound, "proposal %d not found", id)
	}
	return e.proposals[id], nil
}

// FixedSupply is a SupplySource with a constant total.
type FixedSupply uint64

func (s FixedSupply) TotalSupply() uint64 { return uint64(s) }
