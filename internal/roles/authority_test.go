package roles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/agora/internal/domain"
)

type recorder struct{ events []domain.Event }

func (r *recorder) Record(e domain.Event) { r.events = append(r.events, e) }

var now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAuthority_GenesisHoldsBothRoles(t *testing.T) {
	a := New("root", nil)
	assert.True(t, a.HasRole(domain.RoleAdmin, "root"))
	assert.True(t, a.HasRole(domain.RoleModerator, "root"))
	assert.False(t, a.HasRole(domain.RoleAdmin, "alice"))
}

func TestAuthority_GrantAndRevoke(t *testing.T) {
	rec := &recorder{}
	a := New("root", rec)

	require.NoError(t, a.Grant("root", domain.RoleModerator, "alice", now))
	assert.True(t, a.HasRole(domain.RoleModerator, "alice"))

	require.NoError(t, a.Revoke("root", domain.RoleModerator, "alice", now))
	assert.False(t, a.HasRole(domain.RoleModerator, "alice"))

	require.Len(t, rec.events, 2)
	assert.Equal(t, domain.EventRoleGranted, rec.events[0].Kind)
	assert.Equal(t, domain.EventRoleRevoked, rec.events[1].Kind)
}

func TestAuthority_NonAdminIsUnauthorized(t *testing.T) {
	a := New("root", nil)
	require.NoError(t, a.Grant("root", domain.RoleModerator, "mod", now))

	err := a.Grant("mod", domain.RoleModerator, "bob", now)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.False(t, a.HasRole(domain.RoleModerator, "bob"))

	err = a.Revoke("bob", domain.RoleAdmin, "root", now)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, a.HasRole(domain.RoleAdmin, "root"))
}

func TestAuthority_RedundantGrantEmitsNothing(t *testing.T) {
	rec := &recorder{}
	a := New("root", rec)

	require.NoError(t, a.Grant("root", domain.RoleAdmin, "root", now))
	require.NoError(t, a.Revoke("root", domain.RoleModerator, "nobody", now))
	assert.Empty(t, rec.events)
}

func TestAuthority_UnknownRole(t *testing.T) {
	a := New("root", nil)
	err := a.Grant("root", domain.Role("owner"), "alice", now)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
