package sessions

import (
	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/users"
)

// Kind tags which variant a State is.
type Kind int

const (
	Anonymous Kind = iota
	Active
	PendingVerification
	Suspended
)

func (k Kind) String() string {
	switch k {
	case Anonymous:
		return "anonymous"
	case Active:
		return "active"
	case PendingVerification:
		return "pending_verification"
	case Suspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// State is the live session. Credential and Profile are set only for Active
// and PendingVerification; Anonymous and Suspended never carry a credential.
type State struct {
	Kind       Kind
	Credential token.Credential
	Profile    *users.Profile
}

// Authenticated reports whether the state holds a usable credential.
func (s State) Authenticated() bool {
	return s.Kind == Active || s.Kind == PendingVerification
}

func (s State) String() string {
	if s.Profile == nil {
		return s.Kind.String()
	}
	return s.Kind.String() + "(" + s.Profile.Email + ")"
}

func anonymousState() State {
	return State{Kind: Anonymous}
}

func suspendedState() State {
	return State{Kind: Suspended}
}

func authenticatedState(kind Kind, cred token.Credential, profile *users.Profile) State {
	return State{Kind: kind, Credential: cred, Profile: profile.Clone()}
}

// kindForStatus routes an account status to the state it lands in.
func kindForStatus(status users.AccountStatus) (Kind, bool) {
	switch status {
	case users.StatusActive:
		return Active, true
	case users.StatusInactive:
		return PendingVerification, true
	case users.StatusSuspended:
		return Suspended, true
	default:
		return Anonymous, false
	}
}

// clone returns a copy safe to hand to callers.
func (s State) clone() State {
	s.Profile = s.Profile.Clone()
	return s
}

func (s State) equal(o State) bool {
	return s.Kind == o.Kind && s.Credential == o.Credential && s.Profile.Equal(o.Profile)
}
