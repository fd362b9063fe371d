package fakeuserrepo

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-portal-session/users"
)

var _ users.AccountRepo = (*FakeAccountRepo)(nil)

var ErrNotFound = errors.New("not found")

type FakeAccountRepo struct {
	accounts map[string]*users.Account
	emailIDs map[string]string // email to account id
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*users.Account),
		emailIDs: make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (ar *FakeAccountRepo) Upsert(account *users.Account) error {
	if account == nil {
		return errors.New("nil account")
	}

	ar.lock.Lock()
	defer ar.lock.Unlock()

	if account.Profile.ID == "" {
		account.Profile.ID = uuid.New().String()
	}
	stored := *account
	stored.Profile = *account.Profile.Clone()
	ar.accounts[stored.Profile.ID] = &stored
	ar.emailIDs[emailKey(stored.Profile.Email)] = stored.Profile.ID
	return nil
}

func (ar *FakeAccountRepo) Delete(email string) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	id, ok := ar.emailIDs[emailKey(email)]
	if !ok {
		return ErrNotFound
	}
	delete(ar.emailIDs, emailKey(email))
	delete(ar.accounts, id)
	return nil
}

// GetByEmail returns a copy of the stored account.
func (ar *FakeAccountRepo) GetByEmail(email string) (*users.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.emailIDs[emailKey(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return ar.copyOf(id)
}

func (ar *FakeAccountRepo) GetByID(id string) (*users.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	return ar.copyOf(id)
}

func (ar *FakeAccountRepo) GetByResetToken(token string) (*users.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	ar.lock.RLock()
	defer ar.lock.RUnlock()

	for id, a := range ar.accounts {
		if a.ResetToken == token {
			return ar.copyOf(id)
		}
	}
	return nil, ErrNotFound
}

func (ar *FakeAccountRepo) SetStatus(email string, status users.AccountStatus) error {
	return ar.update(email, func(a *users.Account) {
		a.Profile.AccountStatus = status
	})
}

func (ar *FakeAccountRepo) SetLastLogin(email string, at time.Time) error {
	return ar.update(email, func(a *users.Account) {
		a.LastLogin = at
	})
}

func (ar *FakeAccountRepo) update(email string, fn func(a *users.Account)) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	id, ok := ar.emailIDs[emailKey(email)]
	if !ok {
		return ErrNotFound
	}
	fn(ar.accounts[id])
	return nil
}

func (ar *FakeAccountRepo) copyOf(id string) (*users.Account, error) {
	a, ok := ar.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	c.Profile = *a.Profile.Clone()
	return &c, nil
}
