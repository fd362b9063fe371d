package sessions

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-portal-session/token"
)

const refreshKey = "refresh"

// Refresh renews the access token. Concurrent callers share a single
// exchange with the backend and all receive its outcome.
//
// The exchange is detached from ctx and bounded by the refresh timeout. A
// caller whose ctx ends first gets ctx's error alone, not ErrRefreshFailure:
// the session is untouched and the exchange carries on for the others.
//
// On success the stored access token is replaced and the state kind is left
// unchanged. On failure, or when no refresh token is available, the store is
// cleared and the session is forced to Anonymous, and the returned error
// wraps ErrRefreshFailure.
func (m *Manager) Refresh(ctx context.Context) (token.Credential, error) {
	ch := m.refreshGroup.DoChan(refreshKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.metrics.shared()
		}
		if res.Err != nil {
			return token.Credential{}, res.Err
		}
		return res.Val.(token.Credential), nil
	case <-ctx.Done():
		return token.Credential{}, fmt.Errorf("[Manager.Refresh] %w", ctx.Err())
	}
}

func (m *Manager) refresh(ctx context.Context) (token.Credential, error) {
	m.lock.RLock()
	epoch := m.epoch
	live := m.state
	m.lock.RUnlock()

	cred := m.store.LoadCredential()
	if (cred == nil || !cred.HasRefreshToken()) && live.Authenticated() && live.Credential.HasRefreshToken() {
		// The store write at login may have failed; the live session still works.
		cred = &live.Credential
	}
	if cred == nil || !cred.HasRefreshToken() {
		m.metrics.refresh(outcomeNoToken)
		m.logger.Info().Msg("refresh requested without a refresh token")
		m.forceAnonymous(epoch, ErrRefreshFailure)
		return token.Credential{}, fmt.Errorf("[Manager.Refresh] %w: %w", ErrRefreshFailure, ErrNoRefreshToken)
	}

	exCtx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()
	accessToken, err := m.authn.Refresh(exCtx, cred.RefreshToken)

	m.lock.Lock()
	if m.epoch != epoch {
		m.lock.Unlock()
		m.metrics.refresh(outcomeStale)
		m.logger.Info().Msg("discarding refresh result for a session that has since changed")
		return token.Credential{}, fmt.Errorf("[Manager.Refresh] %w: %w", ErrRefreshFailure, ErrSessionChanged)
	}

	if err != nil {
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn().Err(clearErr).Msg("failed to clear session store after refresh failure")
		}
		failure := fmt.Errorf("%w: %w", ErrRefreshFailure, err)
		ev, changed := m.setState(anonymousState(), failure, true)
		m.lock.Unlock()

		m.metrics.refresh(outcomeFailure)
		m.logger.Info().Err(err).Msg("refresh failed, session ended")
		if changed {
			m.emit(ev)
		}
		return token.Credential{}, fmt.Errorf("[Manager.Refresh] %w", failure)
	}

	renewed := cred.WithAccessToken(accessToken)
	if updateErr := m.store.UpdateAccessToken(accessToken); updateErr != nil {
		m.logger.Warn().Err(updateErr).Msg("failed to persist renewed access token")
	}

	var (
		ev      Event
		changed bool
	)
	if m.state.Authenticated() {
		next := m.state
		next.Credential = renewed
		ev, changed = m.setState(next, nil, false)
	}
	m.lock.Unlock()

	m.metrics.refresh(outcomeSuccess)
	m.logger.Debug().Msg("access token renewed")
	if changed {
		m.emit(ev)
	}
	return renewed, nil
}

// forceAnonymous clears the store and moves to Anonymous unless the session
// changed since epoch was read.
func (m *Manager) forceAnonymous(epoch uint64, reason error) {
	m.lock.Lock()
	if m.epoch != epoch {
		m.lock.Unlock()
		return
	}
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear session store")
	}
	ev, changed := m.setState(anonymousState(), reason, true)
	m.lock.Unlock()

	if changed {
		m.emit(ev)
	}
}
