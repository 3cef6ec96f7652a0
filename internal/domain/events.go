package domain

import (
	"strconv"
	"time"
)

// EventKind names a state transition.
type EventKind string

const (
	EventUserRegistered     EventKind = "user.registered"
	EventUserVerified       EventKind = "user.verified"
	EventPostCreated        EventKind = "post.created"
	EventCommentAdded       EventKind = "comment.added"
	EventPostLiked          EventKind = "post.liked"
	EventPostUnliked        EventKind = "post.unliked"
	EventPostFlagged        EventKind = "post.flagged"
	EventModerationStarted  EventKind = "moderation.vote_started"
	EventModerationExecuted EventKind = "moderation.vote_executed"
	EventPostRemoved        EventKind = "post.removed"
	EventPostRestored       EventKind = "post.restored"
	EventProposalCreated    EventKind = "proposal.created"
	EventVoteCast           EventKind = "vote.cast"
	EventProposalExecuted   EventKind = "proposal.executed"
	EventProposalRejected   EventKind = "proposal.rejected"
	EventRoleGranted        EventKind = "role.granted"
	EventRoleRevoked        EventKind = "role.revoked"
	EventParametersUpdated  EventKind = "parameters.updated"
)

// Event is a descriptive record of one transition, consumed by read models.
// ID and Seq are assigned by the ledger when the transaction commits.
type Event struct {
	ID       string         `json:"id"`
	Seq      uint64         `json:"seq"`
	Kind     EventKind      `json:"kind"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId"`
	Actor    Identity       `json:"actor"`
	At       time.Time      `json:"at"`
	Data     map[string]any `json:"data,omitempty"`
}

// EventSink collects events produced while a transaction applies.
type EventSink interface {
	Record(Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// NewEvent is a shorthand for events keyed by a numeric entity id.
func NewEvent(kind EventKind, entity string, id uint64, actor Identity, at time.Time, data map[string]any) Event {
	return Event{
		Kind:     kind,
		Entity:   entity,
		EntityID: strconv.FormatUint(id, 10),
		Actor:    actor,
		At:       at,
		Data:     data,
	}
}
