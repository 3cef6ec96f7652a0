// Package users holds user profiles and their verification status.
package users

import (
	"regexp"
	"strings"
	"time"

	"github.com/UkralStul/agora/internal/domain"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z_0-9]+$`)

// RoleChecker is the slice of the role authority the registry needs.
type RoleChecker interface {
	HasRole(role domain.Role, id domain.Identity) bool
}

// Registry is not safe for concurrent use; the ledger serializes access.
type Registry struct {
	profiles map[domain.Identity]*domain.UserProfile
	roles    RoleChecker
	events   domain.EventSink
}

func New(roles RoleChecker, events domain.EventSink) *Registry {
	if events == nil {
		events = domain.NopSink{}
	}
	return &Registry{
		profiles: make(map[domain.Identity]*domain.UserProfile),
		roles:    roles,
		events:   events,
	}
}

// Register creates the caller's profile, unverified.
func (r *Registry) Register(caller domain.Identity, username, metadataRef string, userType domain.UserType, now time.Time) error {
	if _, ok := r.profiles[caller]; ok {
		return domain.Errorf(domain.KindAlreadyRegistered, "%s is already registered", caller)
	}
	if caller == "" {
		return domain.Errorf(domain.KindInvalidArgument, "caller identity is required")
	}
	if !usernamePattern.MatchString(username) {
		return domain.Errorf(domain.KindInvalidArgument, "invalid username %q", username)
	}
	if !userType.Valid() {
		return domain.Errorf(domain.KindInvalidArgument, "unknown user type %q", userType)
	}

	r.profiles[caller] = &domain.UserProfile{
		Identity:     caller,
		Username:     username,
		MetadataRef:  strings.TrimSpace(metadataRef),
		UserType:     userType,
		RegisteredAt: now,
	}
	r.events.Record(domain.Event{
		Kind:     domain.EventUserRegistered,
		Entity:   "user",
		EntityID: string(caller),
		Actor:    caller,
		At:       now,
		Data:     map[string]any{"username": username, "userType": string(userType)},
	})
	return nil
}

// Verify flips a profile's verified flag. Moderators only; one way.
func (r *Registry) Verify(caller, target domain.Identity, now time.Time) error {
	if !r.roles.HasRole(domain.RoleModerator, caller) {
		return domain.Errorf(domain.KindUnauthorized, "%s is not a moderator", caller)
	}
	p, ok := r.profiles[target]
	if !ok {
		return domain.Errorf(domain.KindNotRegistered, "%s is not registered", target)
	}
	if p.IsVerified {
		return domain.Errorf(domain.KindAlreadyVerified, "%s is already verified", target)
	}

	p.IsVerified = true
	r.events.Record(domain.Event{
		Kind:     domain.EventUserVerified,
		Entity:   "user",
		EntityID: string(target),
		Actor:    caller,
		At:       now,
	})
	return nil
}

func (r *Registry) IsRegistered(id domain.Identity) bool {
	_, ok := r.profiles[id]
	return ok
}

// Profile returns a copy of the profile for id.
func (r *Registry) Profile(id domain.Identity) (domain.UserProfile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return domain.UserProfile{}, domain.Errorf(domain.KindNotFound, "user %s not found", id)
	}
	return *p, nil
}

// Profiles returns copies of every registered profile among ids. Unknown
// identities are simply absent from the result.
func (r *Registry) Profiles(ids []domain.Identity) map[domain.Identity]domain.UserProfile {
	out := make(map[domain.Identity]domain.UserProfile, len(ids))
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			out[id] = *p
		}
	}
	return out
}
