package memstore

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/rs/zerolog/log"
)

var _ token.Store = (*MemStore)(nil)

// MemStore keeps serialised entries in process memory. Sessions stored here
// do not survive a restart.
type MemStore struct {
	entries map[string][]byte
	lock    sync.RWMutex
}

func New() *MemStore {
	return &MemStore{
		entries: make(map[string][]byte),
	}
}

func (ms *MemStore) Save(cred token.Credential, profile *users.Profile) error {
	credData, profileData, err := token.EncodeEntries(cred, profile)
	if err != nil {
		return err
	}

	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.entries[token.CredentialEntry] = credData
	ms.entries[token.ProfileEntry] = profileData
	return nil
}

func (ms *MemStore) LoadCredential() *token.Credential {
	data := ms.raw(token.CredentialEntry)
	if data == nil {
		return nil
	}
	cred, err := token.DecodeCredential(data)
	if err != nil {
		log.Debug().Err(err).Msg("memstore: ignoring stored credential")
		return nil
	}
	return cred
}

func (ms *MemStore) LoadProfile() *users.Profile {
	data := ms.raw(token.ProfileEntry)
	if data == nil {
		return nil
	}
	profile, err := token.DecodeProfile(data)
	if err != nil {
		log.Debug().Err(err).Msg("memstore: ignoring stored profile")
		return nil
	}
	return profile
}

func (ms *MemStore) Clear() error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	delete(ms.entries, token.CredentialEntry)
	delete(ms.entries, token.ProfileEntry)
	return nil
}

func (ms *MemStore) UpdateAccessToken(accessToken string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	data, ok := ms.entries[token.CredentialEntry]
	if !ok {
		log.Warn().Msg("memstore: access token update without a stored credential")
		return nil
	}
	cred, err := token.DecodeCredential(data)
	if err != nil {
		log.Warn().Err(err).Msg("memstore: access token update over a malformed credential")
		return nil
	}
	updated, err := token.EncodeCredential(cred.WithAccessToken(accessToken))
	if err != nil {
		return fmt.Errorf("%w: %w", token.ErrStorageFailure, err)
	}
	ms.entries[token.CredentialEntry] = updated
	return nil
}

// SetRaw overwrites an entry with arbitrary bytes. Used to simulate payloads
// written by older versions or damaged in place.
func (ms *MemStore) SetRaw(entry string, data []byte) {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.entries[entry] = data
}

func (ms *MemStore) raw(entry string) []byte {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	return ms.entries[entry]
}
