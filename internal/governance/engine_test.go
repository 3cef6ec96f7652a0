package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/roles"
	"github.com/UkralStul/agora/internal/users"
)

var now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	engine *Engine
	roles  *roles.Authority
	params *domain.Parameters
}

func newTestEngine(t *testing.T) *testEnv {
	t.Helper()
	authority := roles.New("root", nil)
	registry := users.New(authority, nil)
	for _, id := range []domain.Identity{"alice", "bob", "carol"} {
		require.NoError(t, registry.Register(id, string(id), "", domain.UserTypeIndividual, now))
	}
	params := domain.DefaultParameters()
	return &testEnv{
		engine: New(authority, registry, &params, nil),
		roles:  authority,
		params: &params,
	}
}

func TestEngine_GrantRoleProposalPassesOnce(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine

	id, err := e.CreateProposal("alice", domain.GrantRole{Role: domain.RoleModerator, Target: "carol"}, "ipfs://why", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	p, err := e.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, now.Add(72*time.Hour), p.EndTime)
	assert.Equal(t, domain.ProposalActive, p.Status)

	require.NoError(t, e.CastVote(id, "bob", true, 100, now.Add(time.Hour)))

	after := p.EndTime
	require.NoError(t, e.ExecuteProposal("bob", id, after))
	assert.True(t, env.roles.HasRole(domain.RoleModerator, "carol"))

	p, _ = e.Proposal(id)
	assert.Equal(t, domain.ProposalExecuted, p.Status)

	err = e.ExecuteProposal("bob", id, after)
	assert.ErrorIs(t, err, domain.ErrAlreadyExecuted)
}

func TestEngine_CreateProposalValidation(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine

	_, err := e.CreateProposal("mallory", domain.GrantRole{Role: domain.RoleAdmin, Target: "x"}, "", now)
	assert.ErrorIs(t, err, domain.ErrNotRegistered)

	_, err = e.CreateProposal("alice", domain.UpdateParameters{Name: "bogus", Value: 1}, "", now)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = e.CreateProposal("alice", domain.UpdateParameters{Name: domain.ParamQuorumPercentage, Value: 101}, "", now)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = e.CreateProposal("alice", domain.RemoveContent{PostID: 0}, "", now)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = e.CreateProposal("alice", nil, "", now)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	// rejected proposals do not consume ids
	id, err := e.CreateProposal("alice", domain.RevokeRole{Role: domain.RoleModerator, Target: "root"}, "", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
}

func TestEngine_CastVoteRules(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine
	id, err := e.CreateProposal("alice", domain.UpdateParameters{Name: domain.ParamFlagThreshold, Value: 3}, "", now)
	require.NoError(t, err)

	assert.ErrorIs(t, e.CastVote(9, "bob", true, 1, now), domain.ErrNotFound)
	assert.ErrorIs(t, e.CastVote(id, "mallory", true, 1, now), domain.ErrNotRegistered)

	require.NoError(t, e.CastVote(id, "bob", true, 10, now))
	assert.True(t, e.HasVoted(id, "bob"))
	assert.ErrorIs(t, e.CastVote(id, "bob", false, 10, now), domain.ErrAlreadyVoted)

	require.NoError(t, e.CastVote(id, "carol", true, ^uint64(0)-10, now))
	assert.ErrorIs(t, e.CastVote(id, "alice", true, 1, now), domain.ErrInvalidArgument)
	assert.False(t, e.HasVoted(id, "alice"))

	p, _ := e.Proposal(id)
	assert.Equal(t, ^uint64(0), p.ForWeight)
	assert.Zero(t, p.AgainstWeight)

	err = e.CastVote(id, "alice", false, 1, p.EndTime)
	assert.ErrorIs(t, err, domain.ErrDeadlineFailed)
}

func TestEngine_CastVoteOnSettledProposal(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine
	id, err := e.CreateProposal("alice", domain.GrantRole{Role: domain.RoleAdmin, Target: "bob"}, "", now)
	require.NoError(t, err)
	p, _ := e.Proposal(id)
	require.NoError(t, e.ExecuteProposal("alice", id, p.EndTime))

	assert.ErrorIs(t, e.CastVote(id, "carol", true, 1, now), domain.ErrInvalidState)
}

func TestEngine_ExecuteBeforeDeadline(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine
	id, err := e.CreateProposal("alice", domain.GrantRole{Role: domain.RoleAdmin, Target: "bob"}, "", now)
	require.NoError(t, err)

	assert.ErrorIs(t, e.ExecuteProposal("alice", id, now.Add(time.Hour)), domain.ErrDeadlineNotReached)
	assert.ErrorIs(t, e.ExecuteProposal("alice", 5, now), domain.ErrNotFound)
}

func TestEngine_TieAndNoQuorumReject(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine

	tied, err := e.CreateProposal("alice", domain.GrantRole{Role: domain.RoleAdmin, Target: "bob"}, "", now)
	require.NoError(t, err)
	require.NoError(t, e.CastVote(tied, "bob", true, 50, now))
	require.NoError(t, e.CastVote(tied, "carol", false, 50, now))

	empty, err := e.CreateProposal("alice", domain.GrantRole{Role: domain.RoleAdmin, Target: "carol"}, "", now)
	require.NoError(t, err)

	deadline := now.Add(env.params.VoteDuration)
	require.NoError(t, e.ExecuteProposal("alice", tied, deadline))
	require.NoError(t, e.ExecuteProposal("alice", empty, deadline))

	for _, id := range []uint64{tied, empty} {
		p, _ := e.Proposal(id)
		assert.Equal(t, domain.ProposalRejected, p.Status)
	}
	assert.False(t, env.roles.HasRole(domain.RoleAdmin, "bob"))
	assert.False(t, env.roles.HasRole(domain.RoleAdmin, "carol"))
}

func TestEngine_UpdateParameters(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine

	id, err := e.CreateProposal("alice", domain.UpdateParameters{Name: domain.ParamVoteDuration, Value: 3600}, "", now)
	require.NoError(t, err)
	require.NoError(t, e.CastVote(id, "bob", true, 1, now))
	require.NoError(t, e.ExecuteProposal("carol", id, now.Add(72*time.Hour)))

	assert.Equal(t, time.Hour, e.Parameters().VoteDuration)

	next, err := e.CreateProposal("alice", domain.RevokeRole{Role: domain.RoleAdmin, Target: "root"}, "", now)
	require.NoError(t, err)
	p, _ := e.Proposal(next)
	assert.Equal(t, now.Add(time.Hour), p.EndTime)
}

func TestEngine_DecideWithSupply(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine

	assert.False(t, e.Decide(0, 0))
	assert.True(t, e.Decide(1, 0))
	assert.False(t, e.Decide(5, 5))

	e.SetSupplySource(FixedSupply(1000))
	// quorum is 10% of 1000
	assert.False(t, e.Decide(60, 39))
	assert.True(t, e.Decide(60, 40))
	assert.False(t, e.Decide(40, 60))

	e.SetSupplySource(FixedSupply(^uint64(0)))
	assert.True(t, e.Decide(^uint64(0), ^uint64(0)-1))
}

func TestEngine_RemoveContentWithoutHook(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine

	id := e.OpenRemoval("root", 0, now)
	assert.ErrorIs(t, e.CastVote(id, "bob", true, 1, now), domain.ErrInvalidState)
	assert.False(t, e.HasVoted(id, "bob"))
	assert.ErrorIs(t, e.ExecuteProposal("bob", id, now.Add(72*time.Hour)), domain.ErrInvalidState)
}

func TestEngine_RevokeRoleProposalPassesOnce(t *testing.T) {
	env := newTestEngine(t)
	e := env.engine
	require.True(t, env.roles.HasRole(domain.RoleModerator, "root"))

	id, err := e.CreateProposal("alice", domain.RevokeRole{Role: domain.RoleModerator, Target: "root"}, "ipfs://why", now)
	require.NoError(t, err)
	require.NoError(t, e.CastVote(id, "bob", true, 100, now.Add(time.Hour)))
	require.NoError(t, e.CastVote(id, "carol", false, 40, now.Add(time.Hour)))

	p, err := e.Proposal(id)
	require.NoError(t, err)
	require.NoError(t, e.ExecuteProposal("carol", id, p.EndTime))

	assert.False(t, env.roles.HasRole(domain.RoleModerator, "root"))
	assert.True(t, env.roles.HasRole(domain.RoleAdmin, "root"))

	p, _ = e.Proposal(id)
	assert.Equal(t, domain.ProposalExecuted, p.Status)
	assert.ErrorIs(t, e.ExecuteProposal("carol", id, p.EndTime), domain.ErrAlreadyExecuted)
}
