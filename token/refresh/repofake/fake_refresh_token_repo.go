package refreshrepofake

import (
	"errors"
	"sort"
	"sync"

	"github.com/jrsteele09/go-portal-session/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

var ErrNotFound = errors.New("not found")

type FakeRefreshTokenRepo struct {
	tokens  map[string]refresh.StoredRefreshToken
	userIDs map[string]map[string]struct{} // user ID to set of tokens
	lock    sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens:  make(map[string]refresh.StoredRefreshToken),
		userIDs: make(map[string]map[string]struct{}),
	}
}

func (tr *FakeRefreshTokenRepo) Upsert(refreshToken *refresh.StoredRefreshToken) error {
	if refreshToken == nil || refreshToken.Token == "" {
		return errors.New("[FakeRefreshTokenRepo.Upsert] token is required")
	}

	tr.lock.Lock()
	defer tr.lock.Unlock()

	tr.tokens[refreshToken.Token] = *refreshToken
	if tr.userIDs[refreshToken.UserID] == nil {
		tr.userIDs[refreshToken.UserID] = make(map[string]struct{})
	}
	tr.userIDs[refreshToken.UserID][refreshToken.Token] = struct{}{}
	return nil
}

func (tr *FakeRefreshTokenRepo) Delete(token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return ErrNotFound
	}
	tr.remove(rt)
	return nil
}

func (tr *FakeRefreshTokenRepo) Get(token string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &rt, nil
}

// ListByUserID returns the user's tokens oldest first.
func (tr *FakeRefreshTokenRepo) ListByUserID(userID string) ([]*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	tokens := make([]*refresh.StoredRefreshToken, 0, len(tr.userIDs[userID]))
	for t := range tr.userIDs[userID] {
		rt := tr.tokens[t]
		tokens = append(tokens, &rt)
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Iat.Before(tokens[j].Iat)
	})
	return tokens, nil
}

func (tr *FakeRefreshTokenRepo) DeleteByUserID(userID string) (int, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	owned := tr.userIDs[userID]
	for t := range owned {
		delete(tr.tokens, t)
	}
	delete(tr.userIDs, userID)
	return len(owned), nil
}

func (tr *FakeRefreshTokenRepo) remove(rt refresh.StoredRefreshToken) {
	delete(tr.tokens, rt.Token)
	if owned := tr.userIDs[rt.UserID]; owned != nil {
		delete(owned, rt.Token)
		if len(owned) == 0 {
			delete(tr.userIDs, rt.UserID)
		}
	}
}
