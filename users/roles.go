package users

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownRole          = errors.New("unknown role")
	ErrUnknownAccountStatus = errors.New("unknown account status")
)

// RoleType is the portal's fixed three-tier role.
type RoleType string

const (
	RoleClient     RoleType = "CLIENT"      // Customer of the consultancy
	RoleAdmin      RoleType = "ADMIN"       // Staff member managing bookings, invoices and tickets
	RoleSuperAdmin RoleType = "SUPER_ADMIN" // Can additionally create admin accounts
)

// Roles lists every known role from lowest to highest tier.
var Roles = []RoleType{RoleClient, RoleAdmin, RoleSuperAdmin}

// AccountStatus is the backend account state that drives session routing.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusInactive  AccountStatus = "INACTIVE" // Registered but not yet verified
	StatusSuspended AccountStatus = "SUSPENDED"
)

// ParseRole matches s against the known roles ignoring case and treating
// '-' and ' ' as '_', so "client", "Super Admin" and "super-admin" all resolve.
func ParseRole(s string) (RoleType, error) {
	switch r := RoleType(canonical(s)); r {
	case RoleClient, RoleAdmin, RoleSuperAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// ParseAccountStatus is the AccountStatus counterpart of ParseRole.
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch st := AccountStatus(canonical(s)); st {
	case StatusActive, StatusInactive, StatusSuspended:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAccountStatus, s)
}

// Valid reports whether r is already one of the canonical roles.
func (r RoleType) Valid() bool {
	return r.Tier() > 0
}

// Tier orders roles; unknown roles rank below CLIENT.
func (r RoleType) Tier() int {
	for i, role := range Roles {
		if role == r {
			return i + 1
		}
	}
	return 0
}

func canonical(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return strings.ToUpper(s)
}
