package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/roles"
)

var now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(roles.New("root", nil), nil)
}

func TestRegistry_RegisterOnce(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Register("alice", "Alice", "ipfs://meta", domain.UserTypeJournalist, now))
	err := r.Register("alice", "Alice2", "", domain.UserTypeIndividual, now)
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	p, err := r.Profile("alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Username)
	assert.Equal(t, domain.UserTypeJournalist, p.UserType)
	assert.False(t, p.IsVerified)
	assert.Equal(t, now, p.RegisteredAt)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := newTestRegistry(t)

	assert.ErrorIs(t, r.Register("bob", "bad name", "", domain.UserTypeIndividual, now), domain.ErrInvalidArgument)
	assert.ErrorIs(t, r.Register("bob", "bob", "", domain.UserType("robot"), now), domain.ErrInvalidArgument)
	assert.False(t, r.IsRegistered("bob"))
}

func TestRegistry_Verify(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("alice", "alice", "", domain.UserTypeIndividual, now))

	assert.ErrorIs(t, r.Verify("alice", "alice", now), domain.ErrUnauthorized)
	assert.ErrorIs(t, r.Verify("root", "ghost", now), domain.ErrNotRegistered)

	require.NoError(t, r.Verify("root", "alice", now))
	p, err := r.Profile("alice")
	require.NoError(t, err)
	assert.True(t, p.IsVerified)

	assert.ErrorIs(t, r.Verify("root", "alice", now), domain.ErrAlreadyVerified)
}

func TestRegistry_ProfileNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Profile("nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_Profiles(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("a", "a", "", domain.UserTypeIndividual, now))
	require.NoError(t, r.Register("b", "b", "", domain.UserTypeOrganization, now))

	got := r.Profiles([]domain.Identity{"a", "b", "c"})
	assert.Len(t, got, 2)
	assert.Equal(t, "b", got["b"].Username)
}
