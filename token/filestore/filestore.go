package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/rs/zerolog/log"
)

var _ token.Store = (*FileStore)(nil)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// FileStore keeps each entry as a JSON file in a per-profile directory, so a
// session survives restarts of the program using the same directory.
type FileStore struct {
	dir  string
	lock sync.RWMutex
}

func New(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("[filestore.New] dir is required")
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(entry string) string {
	return filepath.Join(s.dir, entry+".json")
}

// Save writes both entries to temporary files first and only renames them
// into place once both writes have succeeded.
func (s *FileStore) Save(cred token.Credential, profile *users.Profile) error {
	credData, profileData, err := token.EncodeEntries(cred, profile)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("%w: create %s: %w", token.ErrStorageFailure, s.dir, err)
	}

	credTmp, err := s.writeTemp(token.CredentialEntry, credData)
	if err != nil {
		return err
	}
	profileTmp, err := s.writeTemp(token.ProfileEntry, profileData)
	if err != nil {
		_ = os.Remove(credTmp)
		return err
	}

	prevCred, err := os.ReadFile(s.path(token.CredentialEntry))
	if err != nil {
		prevCred = nil
	}

	if err := os.Rename(credTmp, s.path(token.CredentialEntry)); err != nil {
		_ = os.Remove(credTmp)
		_ = os.Remove(profileTmp)
		return fmt.Errorf("%w: commit credential: %w", token.ErrStorageFailure, err)
	}
	if err := os.Rename(profileTmp, s.path(token.ProfileEntry)); err != nil {
		_ = os.Remove(profileTmp)
		s.restore(token.CredentialEntry, prevCred)
		return fmt.Errorf("%w: commit profile: %w", token.ErrStorageFailure, err)
	}
	return nil
}

// restore puts back the previous contents of entry, or removes it when there
// were none.
func (s *FileStore) restore(entry string, prev []byte) {
	if prev == nil {
		_ = os.Remove(s.path(entry))
		return
	}
	tmp, err := s.writeTemp(entry, prev)
	if err == nil {
		err = os.Rename(tmp, s.path(entry))
		if err != nil {
			_ = os.Remove(tmp)
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("dir", s.dir).Str("entry", entry).Msg("filestore: could not restore previous entry")
	}
}

func (s *FileStore) writeTemp(entry string, data []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, entry+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp %s: %w", token.ErrStorageFailure, entry, err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("%w: write %s: %w", token.ErrStorageFailure, entry, err)
	}
	if err := f.Chmod(filePerm); err != nil {
		f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("%w: chmod %s: %w", token.ErrStorageFailure, entry, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("%w: close %s: %w", token.ErrStorageFailure, entry, err)
	}
	return name, nil
}

func (s *FileStore) LoadCredential() *token.Credential {
	data := s.read(token.CredentialEntry)
	if data == nil {
		return nil
	}
	cred, err := token.DecodeCredential(data)
	if err != nil {
		log.Debug().Err(err).Str("dir", s.dir).Msg("filestore: ignoring stored credential")
		return nil
	}
	return cred
}

func (s *FileStore) LoadProfile() *users.Profile {
	data := s.read(token.ProfileEntry)
	if data == nil {
		return nil
	}
	profile, err := token.DecodeProfile(data)
	if err != nil {
		log.Debug().Err(err).Str("dir", s.dir).Msg("filestore: ignoring stored profile")
		return nil
	}
	return profile
}

func (s *FileStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	var errs []error
	for _, entry := range []string{token.CredentialEntry, token.ProfileEntry} {
		if err := os.Remove(s.path(entry)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("[FileStore.Clear] %w", errors.Join(errs...))
	}
	return nil
}

func (s *FileStore) UpdateAccessToken(accessToken string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path(token.CredentialEntry))
	if err != nil {
		log.Warn().Str("dir", s.dir).Msg("filestore: access token update without a stored credential")
		return nil
	}
	cred, err := token.DecodeCredential(data)
	if err != nil {
		log.Warn().Err(err).Str("dir", s.dir).Msg("filestore: access token update over a malformed credential")
		return nil
	}
	updated, err := token.EncodeCredential(cred.WithAccessToken(accessToken))
	if err != nil {
		return fmt.Errorf("%w: %w", token.ErrStorageFailure, err)
	}

	tmp, err := s.writeTemp(token.CredentialEntry, updated)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path(token.CredentialEntry)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: commit credential: %w", token.ErrStorageFailure, err)
	}
	return nil
}

func (s *FileStore) read(entry string) []byte {
	s.lock.RLock()
	defer s.lock.RUnlock()

	data, err := os.ReadFile(s.path(entry))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Debug().Err(err).Str("entry", entry).Msg("filestore: read failed")
		}
		return nil
	}
	return data
}
