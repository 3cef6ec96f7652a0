// Package roles holds role assignments and answers authorization checks.
package roles

import (
	"time"

	"github.com/UkralStul/agora/internal/domain"
)

// Authority is the (role, identity) relation. It is not safe for concurrent
// use; the ledger serializes every call.
type Authority struct {
	assignments map[domain.Role]map[domain.Identity]bool
	events      domain.EventSink
}

// New bootstraps the relation with genesis holding Admin and Moderator.
func New(genesis domain.Identity, events domain.EventSink) *Authority {
	if events == nil {
		events = domain.NopSink{}
	}
	a := &Authority{
		assignments: make(map[domain.Role]map[domain.Identity]bool),
		events:      events,
	}
	if genesis != "" {
		a.set(domain.RoleAdmin, genesis, true)
		a.set(domain.RoleModerator, genesis, true)
	}
	return a
}

// HasRole is a pure lookup.
func (a *Authority) HasRole(role domain.Role, id domain.Identity) bool {
	return a.assignments[role][id]
}

// Grant requires caller to be an Admin.
func (a *Authority) Grant(caller domain.Identity, role domain.Role, target domain.Identity, now time.Time) error {
	if err := a.authorize(caller, role, target); err != nil {
		return err
	}
	a.Apply(role, target, true, caller, now)
	return nil
}

// Revoke requires caller to be an Admin.
func (a *Authority) Revoke(caller domain.Identity, role domain.Role, target domain.Identity, now time.Time) error {
	if err := a.authorize(caller, role, target); err != nil {
		return err
	}
	a.Apply(role, target, false, caller, now)
	return nil
}

// Apply changes the relation without an authorization check. It is reached
// from Grant/Revoke and from executed GrantRole/RevokeRole proposals, whose
// payloads were validated when the proposal was created.
func (a *Authority) Apply(role domain.Role, target domain.Identity, grant bool, actor domain.Identity, now time.Time) {
	if a.HasRole(role, target) == grant {
		return
	}
	a.set(role, target, grant)
	kind := domain.EventRoleGranted
	if !grant {
		kind = domain.EventRoleRevoked
	}
	a.events.Record(domain.Event{
		Kind:     kind,
		Entity:   "role",
		EntityID: string(role) + "/" + string(target),
		Actor:    actor,
		At:       now,
		Data:     map[string]any{"role": string(role), "target": string(target)},
	})
}

func (a *Authority) authorize(caller domain.Identity, role domain.Role, target domain.Identity) error {
	if !a.HasRole(domain.RoleAdmin, caller) {
		return domain.Errorf(domain.KindUnauthorized, "%s is not an admin", caller)
	}
	if !role.Valid() {
		return domain.Errorf(domain.KindInvalidArgument, "unknown role %q", role)
	}
	if target == "" {
		return domain.Errorf(domain.KindInvalidArgument, "role target is required")
	}
	return nil
}

func (a *Authority) set(role domain.Role, id domain.Identity, v bool) {
	holders, ok := a.assignments[role]
	if !ok {
		holders = make(map[domain.Identity]bool)
		a.assignments[role] = holders
	}
	if v {
		holders[id] = true
		return
	}
	delete(holders, id)
}
