// Package access answers role questions about the logged in user. Every
// predicate reads a fresh profile snapshot, so answers follow the session.
package access

import (
	"slices"

	"github.com/jrsteele09/go-portal-session/users"
)

// ProfileSource supplies the live profile, nil when nobody is logged in.
// *sessions.Manager satisfies it.
type ProfileSource interface {
	Profile() *users.Profile
}

type Policy struct {
	src ProfileSource
}

func New(src ProfileSource) *Policy {
	return &Policy{src: src}
}

func (p *Policy) role() users.RoleType {
	if p == nil || p.src == nil {
		return ""
	}
	profile := p.src.Profile()
	if profile == nil {
		return ""
	}
	return profile.Role
}

func (p *Policy) IsClient() bool {
	return p.role() == users.RoleClient
}

func (p *Policy) IsAdmin() bool {
	return p.role() == users.RoleAdmin
}

func (p *Policy) IsSuperAdmin() bool {
	return p.role() == users.RoleSuperAdmin
}

// IsAtLeastAdmin is true for ADMIN and SUPER_ADMIN.
func (p *Policy) IsAtLeastAdmin() bool {
	return p.role().Tier() >= users.RoleAdmin.Tier()
}

// CanManageOthersRecords gates managing bookings, invoices and tickets that
// belong to other users.
func (p *Policy) CanManageOthersRecords() bool {
	return p.IsAtLeastAdmin()
}

// HasAnyRole is the route guard check: true when the user holds one of roles.
func (p *Policy) HasAnyRole(roles ...users.RoleType) bool {
	role := p.role()
	return role != "" && slices.Contains(roles, role)
}

// CanCreateAccountWithRole reports whether the current user may create an
// account holding target.
func (p *Policy) CanCreateAccountWithRole(target users.RoleType) bool {
	var actor *users.Profile
	if p != nil && p.src != nil {
		actor = p.src.Profile()
	}
	return CanCreate(actor, target)
}

// CanCreateAccountWithRoleName parses name case-insensitively; unknown names
// are never creatable.
func (p *Policy) CanCreateAccountWithRoleName(name string) bool {
	target, err := users.ParseRole(name)
	if err != nil {
		return false
	}
	return p.CanCreateAccountWithRole(target)
}

// CanCreate holds the account creation matrix. SUPER_ADMIN may create any
// role. ADMIN, CLIENT and an absent actor (public signup) may create CLIENT
// accounts only.
func CanCreate(actor *users.Profile, target users.RoleType) bool {
	if !target.Valid() {
		return false
	}
	if actor != nil && actor.Role == users.RoleSuperAdmin {
		return true
	}
	return target == users.RoleClient
}
