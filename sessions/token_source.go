package sessions

import (
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = tokenSource{}

type tokenSource struct {
	m *Manager
}

// TokenSource exposes the live credential to golang.org/x/oauth2 consumers.
// It never refreshes on its own; a 401 still goes through Refresh.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return tokenSource{m: m}
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	ts.m.lock.RLock()
	defer ts.m.lock.RUnlock()

	if !ts.m.state.Authenticated() || ts.m.state.Credential.IsZero() {
		return nil, ErrNoSession
	}
	return ts.m.state.Credential.OAuth2Token(), nil
}
