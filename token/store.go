package token

import (
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-portal-session/internal/errors"
	"github.com/jrsteele09/go-portal-session/users"
)

// ErrStorageFailure is wrapped by every Save error.
var ErrStorageFailure = apperrors.ErrStorageFailure

// Entry names shared by all store implementations. The credential and the
// profile are two independently clearable entries.
const (
	CredentialEntry = "credential"
	ProfileEntry    = "profile"
)

// Store persists the credential and the last known profile for one profile
// scope (a directory, a key prefix). Only the session manager writes to it.
//
// Stores are safe for concurrent use within a process. Two processes sharing
// the same scope get no consistency guarantee.
type Store interface {
	// Save writes both entries. A reader in the same process never sees one
	// without the other. Errors wrap ErrStorageFailure.
	Save(cred Credential, profile *users.Profile) error

	// LoadCredential returns nil when the entry is absent or malformed.
	LoadCredential() *Credential

	// LoadProfile returns nil when the entry is absent or malformed.
	LoadProfile() *users.Profile

	// Clear removes both entries. Clearing an empty store is not an error.
	Clear() error

	// UpdateAccessToken replaces only the access token, keeping the refresh
	// token. It is a no-op when no credential is stored.
	UpdateAccessToken(accessToken string) error
}

var errMalformedProfile = errors.New("malformed profile")

// EncodeProfile serialises a profile for a Store entry.
func EncodeProfile(p *users.Profile) ([]byte, error) {
	if p == nil {
		return nil, errMalformedProfile
	}
	return json.Marshal(p)
}

// DecodeProfile parses and normalises a stored profile entry.
func DecodeProfile(data []byte) (*users.Profile, error) {
	var p users.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedProfile, err)
	}
	if err := p.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedProfile, err)
	}
	return &p, nil
}

// EncodeEntries serialises both entries, failing with ErrStorageFailure.
func EncodeEntries(cred Credential, profile *users.Profile) (credData, profileData []byte, err error) {
	if credData, err = EncodeCredential(cred); err != nil {
		return nil, nil, fmt.Errorf("%w: encode credential: %w", ErrStorageFailure, err)
	}
	if profileData, err = EncodeProfile(profile); err != nil {
		return nil, nil, fmt.Errorf("%w: encode profile: %w", ErrStorageFailure, err)
	}
	return credData, profileData, nil
}
