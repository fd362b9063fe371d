package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const defaultRefreshTimeout = 10 * time.Second

// Manager owns the session state of one application instance. It is the only
// writer of its token.Store.
type Manager struct {
	store          token.Store
	authn          auth.Authenticator
	flows          auth.AccountFlows
	logger         zerolog.Logger
	nowTime        func() time.Time
	refreshTimeout time.Duration
	metrics        *Metrics

	lock  sync.RWMutex
	state State
	// epoch changes whenever the session identity changes (login, logout,
	// invalidation). Refresh results from an older epoch are dropped.
	epoch uint64
	// seq numbers emitted events.
	seq uint64

	refreshGroup singleflight.Group

	subsLock  sync.Mutex
	subs      []subscription
	nextSubID int
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithRefreshTimeout bounds a single refresh exchange.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTimeout = d
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithAccountFlows enables Verify.
func WithAccountFlows(flows auth.AccountFlows) Option {
	return func(m *Manager) {
		m.flows = flows
	}
}

// NewManager creates a Manager in the Anonymous state. Call Hydrate before
// reading the state.
func NewManager(store token.Store, authn auth.Authenticator, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if authn == nil {
		return nil, errors.New("[NewManager] authenticator is required")
	}

	m := &Manager{
		store:          store,
		authn:          authn,
		logger:         log.Logger,
		nowTime:        time.Now,
		refreshTimeout: defaultRefreshTimeout,
		state:          anonymousState(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Hydrate rebuilds the state from the store. A stored ACTIVE profile
// resumes Active, INACTIVE resumes PendingVerification. Anything else,
// including a persisted SUSPENDED profile or a half-written entry, clears
// the store and lands in Anonymous. Calling it again with an unchanged store
// yields the same state.
func (m *Manager) Hydrate() State {
	m.lock.Lock()

	cred := m.store.LoadCredential()
	profile := m.store.LoadProfile()

	next := anonymousState()
	if cred != nil && profile != nil {
		if kind, ok := kindForStatus(profile.AccountStatus); ok && kind != Suspended {
			next = authenticatedState(kind, *cred, profile)
		}
	}

	if !next.Authenticated() && (cred != nil || profile != nil) {
		m.logger.Info().Bool("credential", cred != nil).Bool("profile", profile != nil).Msg("discarding unusable stored session")
		if err := m.store.Clear(); err != nil {
			m.logger.Warn().Err(err).Msg("failed to clear stored session")
		}
	}

	ev, changed := m.setState(next, nil, true)
	current := m.state.clone()
	m.lock.Unlock()

	if changed {
		m.emit(ev)
	}
	return current
}

// Login exchanges credentials with the backend and routes on the account
// status: ACTIVE to Active, INACTIVE to PendingVerification, SUSPENDED to
// Suspended with the store cleared.
//
// A failed exchange leaves the state as it was and returns the classified
// auth error. When the exchange succeeds but the store cannot be written,
// the in-memory session is kept and the returned error wraps
// ErrStorageFailure; callers should treat that as a warning.
func (m *Manager) Login(ctx context.Context, req auth.LoginRequest) (State, error) {
	resp, err := m.authn.Login(ctx, req)
	if err != nil {
		m.logger.Info().Err(err).Str("email", req.Email).Msg("login failed")
		return m.State(), err
	}

	st, err := m.establish(resp.Credential, resp.Profile, nil)
	if err != nil {
		return st, fmt.Errorf("[Manager.Login] %w", err)
	}
	m.logger.Info().Str("email", resp.Profile.Email).Str("session_kind", st.Kind.String()).Msg("logged in")
	return st, nil
}

// Verify submits an email verification code for a PendingVerification
// session and routes on the refreshed profile exactly like Login.
func (m *Manager) Verify(ctx context.Context, code string) (State, error) {
	if m.flows == nil {
		return m.State(), fmt.Errorf("[Manager.Verify] %w: no account flows configured", ErrUnsupported)
	}

	m.lock.RLock()
	st, epoch := m.state, m.epoch
	m.lock.RUnlock()

	if st.Kind != PendingVerification {
		return st.clone(), fmt.Errorf("[Manager.Verify] %w: session is %s", ErrNotVerifiable, st.Kind)
	}

	profile, err := m.flows.VerifyEmail(ctx, st.Credential.AccessToken, code)
	if err != nil {
		return m.State(), err
	}

	m.lock.RLock()
	changed := m.epoch != epoch
	m.lock.RUnlock()
	if changed {
		return m.State(), fmt.Errorf("[Manager.Verify] %w", ErrSessionChanged)
	}

	next, err := m.establish(m.currentCredential(st.Credential), profile, nil)
	if err != nil {
		return next, fmt.Errorf("[Manager.Verify] %w", err)
	}
	return next, nil
}

// establish persists a freshly obtained credential and profile and moves to
// the state their account status routes to.
func (m *Manager) establish(cred token.Credential, profile *users.Profile, reason error) (State, error) {
	if profile == nil {
		return m.State(), ErrInvalidResponse
	}
	kind, ok := kindForStatus(profile.AccountStatus)
	if !ok {
		return m.State(), fmt.Errorf("%w: account status %q", ErrInvalidResponse, profile.AccountStatus)
	}

	m.lock.Lock()
	var (
		next     State
		storeErr error
	)
	if kind == Suspended {
		next = suspendedState()
		storeErr = m.store.Clear()
	} else {
		next = authenticatedState(kind, cred, profile)
		storeErr = m.store.Save(cred, profile)
	}

	ev, changed := m.setState(next, reason, true)
	current := m.state.clone()
	m.lock.Unlock()

	if changed {
		m.emit(ev)
	}

	if storeErr != nil {
		m.logger.Warn().Err(storeErr).Str("session_kind", kind.String()).Msg("session store write failed")
		if !errors.Is(storeErr, ErrStorageFailure) {
			storeErr = fmt.Errorf("%w: %w", ErrStorageFailure, storeErr)
		}
		return current, storeErr
	}
	return current, nil
}

// Logout ends the session from any state. The backend logout is best effort:
// its failure is logged, never returned.
func (m *Manager) Logout(ctx context.Context) State {
	m.lock.RLock()
	cred := m.state.Credential
	authenticated := m.state.Authenticated()
	m.lock.RUnlock()

	if authenticated && !cred.IsZero() {
		if err := m.authn.Logout(ctx, cred); err != nil {
			m.logger.Warn().Err(err).Msg("backend logout failed")
		}
	}

	m.lock.Lock()
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear session store on logout")
	}
	ev, changed := m.setState(anonymousState(), nil, true)
	current := m.state.clone()
	m.lock.Unlock()

	if changed {
		m.emit(ev)
	}
	m.logger.Info().Msg("logged out")
	return current
}

// Invalidate forces the session to Anonymous and clears the store. reason is
// carried on the emitted event.
func (m *Manager) Invalidate(reason error) {
	m.lock.Lock()
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear session store on invalidate")
	}
	ev, changed := m.setState(anonymousState(), reason, true)
	m.lock.Unlock()

	if changed {
		m.logger.Info().Err(reason).Str("prev_kind", ev.Previous.Kind.String()).Msg("session invalidated")
		m.emit(ev)
	}
}

// InvalidateToken is Invalidate for a specific access token. It does nothing
// and returns false when the session no longer holds accessToken, e.g. after
// a refresh or a new login since the rejected request was sent.
func (m *Manager) InvalidateToken(accessToken string, reason error) bool {
	m.lock.Lock()
	if !m.state.Authenticated() || m.state.Credential.AccessToken != accessToken {
		m.lock.Unlock()
		m.logger.Debug().Err(reason).Msg("ignoring invalidation for a superseded token")
		return false
	}
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear session store on invalidate")
	}
	ev, changed := m.setState(anonymousState(), reason, true)
	m.lock.Unlock()

	if changed {
		m.logger.Info().Err(reason).Str("prev_kind", ev.Previous.Kind.String()).Msg("session invalidated")
		m.emit(ev)
	}
	return true
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state.clone()
}

// Profile returns a copy of the live profile, or nil when not authenticated.
func (m *Manager) Profile() *users.Profile {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state.Profile.Clone()
}

// AccessToken returns the access token of an authenticated session.
func (m *Manager) AccessToken() (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if !m.state.Authenticated() || m.state.Credential.IsZero() {
		return "", false
	}
	return m.state.Credential.AccessToken, true
}

// currentCredential returns the live credential if the session still holds
// one, else fallback.
func (m *Manager) currentCredential(fallback token.Credential) token.Credential {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.state.Authenticated() && !m.state.Credential.IsZero() {
		return m.state.Credential
	}
	return fallback
}

// setState must be called with m.lock held. It returns the event to emit
// once the lock is released, and whether anything changed.
func (m *Manager) setState(next State, reason error, newEpoch bool) (Event, bool) {
	prev := m.state
	if prev.equal(next) {
		return Event{}, false
	}

	m.state = next
	m.seq++
	if newEpoch {
		m.epoch++
	}
	if prev.Kind != next.Kind {
		m.metrics.transition(next.Kind)
		m.logger.Debug().Str("prev_kind", prev.Kind.String()).Str("session_kind", next.Kind.String()).Msg("session transition")
	}

	return Event{
		Seq:      m.seq,
		Previous: prev.clone(),
		Current:  next.clone(),
		Reason:   reason,
		At:       m.nowTime(),
	}, true
}
