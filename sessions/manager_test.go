package sessions_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-portal-session/access"
	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/sessions"
	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/token/memstore"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@b.com"
	testPassword = "pass123"
)

var testCredential = token.Credential{AccessToken: "abc", RefreshToken: "xyz"}

func testProfile(status users.AccountStatus) *users.Profile {
	return &users.Profile{
		ID:            "user-1",
		FullName:      "Ada Lovelace",
		Email:         testEmail,
		Role:          users.RoleClient,
		AccountStatus: status,
	}
}

// fakeAuth is a scriptable auth backend.
type fakeAuth struct {
	mu            sync.Mutex
	loginResp     *auth.LoginResponse
	loginErr      error
	newAccess     string
	refreshErr    error
	refreshGate   chan struct{}
	refreshEntry  chan struct{}
	refreshTokens []string
	logoutErr     error
	logoutCalls   int
	verifyProfile *users.Profile
	verifyErr     error

	refreshCalls atomic.Int32
}

var (
	_ auth.Authenticator = (*fakeAuth)(nil)
	_ auth.AccountFlows  = (*fakeAuth)(nil)
)

func (f *fakeAuth) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &auth.LoginResponse{Credential: f.loginResp.Credential, Profile: f.loginResp.Profile.Clone()}, nil
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	f.refreshTokens = append(f.refreshTokens, refreshToken)
	gate, entry := f.refreshGate, f.refreshEntry
	f.mu.Unlock()

	if entry != nil {
		select {
		case entry <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return f.newAccess, nil
}

func (f *fakeAuth) Logout(ctx context.Context, cred token.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) Signup(ctx context.Context, req auth.SignupRequest) error { return nil }

func (f *fakeAuth) VerifyEmail(ctx context.Context, accessToken, code string) (*users.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyProfile.Clone(), nil
}

func (f *fakeAuth) ResendVerification(ctx context.Context, email string) error { return nil }
func (f *fakeAuth) ForgotPassword(ctx context.Context, email string) error     { return nil }
func (f *fakeAuth) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return nil
}

// failingStore refuses writes but otherwise behaves like a memstore.
type failingStore struct {
	*memstore.MemStore
}

func (failingStore) Save(token.Credential, *users.Profile) error {
	return token.ErrStorageFailure
}

type testFixture struct {
	store   *memstore.MemStore
	authn   *fakeAuth
	manager *sessions.Manager
	metrics *sessions.Metrics
	reg     *prometheus.Registry
	events  *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []sessions.Event
}

func (l *eventLog) record(ev sessions.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []sessions.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sessions.Event(nil), l.events...)
}

func (l *eventLog) last() sessions.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return sessions.Event{}
	}
	return l.events[len(l.events)-1]
}

func setupTestFixture(t *testing.T, opts ...sessions.Option) *testFixture {
	t.Helper()

	store := memstore.New()
	authn := &fakeAuth{
		loginResp: &auth.LoginResponse{Credential: testCredential, Profile: testProfile(users.StatusActive)},
		newAccess: "fresh",
	}
	reg := prometheus.NewRegistry()
	metrics := sessions.NewMetrics(reg)

	opts = append([]sessions.Option{sessions.WithMetrics(metrics), sessions.WithAccountFlows(authn)}, opts...)
	m, err := sessions.NewManager(store, authn, opts...)
	require.NoError(t, err)

	events := &eventLog{}
	m.Subscribe(events.record)

	return &testFixture{store: store, authn: authn, manager: m, metrics: metrics, reg: reg, events: events}
}

func (f *testFixture) login(t *testing.T, status users.AccountStatus) sessions.State {
	t.Helper()
	f.authn.mu.Lock()
	f.authn.loginResp = &auth.LoginResponse{Credential: testCredential, Profile: testProfile(status)}
	f.authn.mu.Unlock()

	st, err := f.manager.Login(context.Background(), auth.LoginRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	return st
}

func TestNewManager_RequiresDependencies(t *testing.T) {
	_, err := sessions.NewManager(nil, &fakeAuth{})
	require.Error(t, err)

	_, err = sessions.NewManager(memstore.New(), nil)
	require.Error(t, err)
}

func TestManager_StartsAnonymous(t *testing.T) {
	f := setupTestFixture(t)

	require.Equal(t, sessions.Anonymous, f.manager.State().Kind)
	require.Nil(t, f.manager.Profile())
	_, ok := f.manager.AccessToken()
	require.False(t, ok)
}

func TestManager_Hydrate(t *testing.T) {
	tests := []struct {
		name       string
		seed       func(s *memstore.MemStore)
		expected   sessions.Kind
		storeEmpty bool
	}{
		{
			name:       "empty store",
			seed:       func(s *memstore.MemStore) {},
			expected:   sessions.Anonymous,
			storeEmpty: true,
		},
		{
			name:     "active profile",
			seed:     func(s *memstore.MemStore) { _ = s.Save(testCredential, testProfile(users.StatusActive)) },
			expected: sessions.Active,
		},
		{
			name:     "inactive profile",
			seed:     func(s *memstore.MemStore) { _ = s.Save(testCredential, testProfile(users.StatusInactive)) },
			expected: sessions.PendingVerification,
		},
		{
			name:       "suspended profile is never resumed",
			seed:       func(s *memstore.MemStore) { _ = s.Save(testCredential, testProfile(users.StatusSuspended)) },
			expected:   sessions.Anonymous,
			storeEmpty: true,
		},
		{
			name:       "credential without profile",
			seed:       func(s *memstore.MemStore) { s.SetRaw(token.CredentialEntry, []byte(`{"accessToken":"abc","refreshToken":"xyz"}`)) },
			expected:   sessions.Anonymous,
			storeEmpty: true,
		},
		{
			name: "malformed profile",
			seed: func(s *memstore.MemStore) {
				_ = s.Save(testCredential, testProfile(users.StatusActive))
				s.SetRaw(token.ProfileEntry, []byte(`{"role":"OWNER"}`))
			},
			expected:   sessions.Anonymous,
			storeEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			tt.seed(f.store)

			first := f.manager.Hydrate()
			require.Equal(t, tt.expected, first.Kind)

			second := f.manager.Hydrate()
			require.Equal(t, first.Kind, second.Kind)
			require.Equal(t, first.Credential, second.Credential)
			require.True(t, first.Profile.Equal(second.Profile))

			if tt.storeEmpty {
				require.Nil(t, f.store.LoadCredential())
				require.Nil(t, f.store.LoadProfile())
			} else {
				require.Equal(t, testCredential, second.Credential)
			}
		})
	}
}

func TestManager_HydrateEmitsOnlyOnChange(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(testCredential, testProfile(users.StatusActive)))

	f.manager.Hydrate()
	f.manager.Hydrate()

	events := f.events.all()
	require.Len(t, events, 1)
	require.Equal(t, sessions.Anonymous, events[0].Previous.Kind)
	require.Equal(t, sessions.Active, events[0].Current.Kind)
}

func TestManager_LoginStatusRouting(t *testing.T) {
	tests := []struct {
		status   users.AccountStatus
		expected sessions.Kind
		stored   bool
	}{
		{status: users.StatusActive, expected: sessions.Active, stored: true},
		{status: users.StatusInactive, expected: sessions.PendingVerification, stored: true},
		{status: users.StatusSuspended, expected: sessions.Suspended, stored: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := setupTestFixture(t)
			require.NoError(t, f.store.Save(token.Credential{AccessToken: "old", RefreshToken: "old"}, testProfile(users.StatusActive)))

			st := f.login(t, tt.status)
			require.Equal(t, tt.expected, st.Kind)
			require.Equal(t, tt.expected, f.manager.State().Kind)

			if tt.stored {
				require.Equal(t, testCredential, *f.store.LoadCredential())
				require.Equal(t, tt.status, f.store.LoadProfile().AccountStatus)
				require.Equal(t, testCredential, st.Credential)
				require.Equal(t, testEmail, st.Profile.Email)
				return
			}
			require.Nil(t, f.store.LoadCredential())
			require.Nil(t, f.store.LoadProfile())
			require.True(t, st.Credential.IsZero())
			require.Nil(t, st.Profile)
			_, ok := f.manager.AccessToken()
			require.False(t, ok)
		})
	}
}

func TestManager_NormalLogin(t *testing.T) {
	f := setupTestFixture(t)

	st := f.login(t, users.StatusActive)

	require.Equal(t, sessions.Active, st.Kind)
	require.Equal(t, token.Credential{AccessToken: "abc", RefreshToken: "xyz"}, *f.store.LoadCredential())
	tok, ok := f.manager.AccessToken()
	require.True(t, ok)
	require.Equal(t, "abc", tok)
	require.Equal(t, users.RoleClient, f.manager.Profile().Role)
	require.True(t, access.New(f.manager).IsClient())

	ev := f.events.last()
	require.Equal(t, sessions.Anonymous, ev.Previous.Kind)
	require.Equal(t, sessions.Active, ev.Current.Kind)
	require.False(t, ev.Forced())
	require.Equal(t, 1.0, counterValue(t, f.reg, "portal_session_transitions_total", "active"))
}

func TestManager_LoginFailureKeepsAnonymous(t *testing.T) {
	f := setupTestFixture(t)
	f.authn.loginErr = &auth.Error{Op: "login", Status: 401, Message: "Wrong email or password", Err: auth.ErrInvalidCredentials}

	st, err := f.manager.Login(context.Background(), auth.LoginRequest{Email: testEmail, Password: "bad"})
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	require.Equal(t, sessions.Anonymous, st.Kind)
	require.Nil(t, f.store.LoadCredential())
	require.Empty(t, f.events.all())
}

func TestManager_LoginStorageFailureIsAWarning(t *testing.T) {
	authn := &fakeAuth{loginResp: &auth.LoginResponse{Credential: testCredential, Profile: testProfile(users.StatusActive)}}
	m, err := sessions.NewManager(failingStore{memstore.New()}, authn)
	require.NoError(t, err)

	st, err := m.Login(context.Background(), auth.LoginRequest{Email: testEmail, Password: testPassword})
	require.ErrorIs(t, err, sessions.ErrStorageFailure)
	require.Equal(t, sessions.Active, st.Kind)

	tok, ok := m.AccessToken()
	require.True(t, ok)
	require.Equal(t, "abc", tok)

	// The live credential still refreshes even though nothing was stored.
	authn.newAccess = "fresh"
	cred, err := m.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", cred.AccessToken)
}

func TestManager_ProfileIsACopy(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)

	p := f.manager.Profile()
	p.Role = users.RoleSuperAdmin
	p.Email = "mallory@b.com"

	require.Equal(t, users.RoleClient, f.manager.Profile().Role)
	require.Equal(t, testEmail, f.manager.State().Profile.Email)
}

func TestManager_RefreshSuccess(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusInactive)

	cred, err := f.manager.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, token.Credential{AccessToken: "fresh", RefreshToken: "xyz"}, cred)

	require.Equal(t, sessions.PendingVerification, f.manager.State().Kind)
	require.Equal(t, cred, *f.store.LoadCredential())
	tok, _ := f.manager.AccessToken()
	require.Equal(t, "fresh", tok)
	require.Equal(t, []string{"xyz"}, f.authn.refreshTokens)

	ev := f.events.last()
	require.Equal(t, sessions.PendingVerification, ev.Current.Kind)
	require.Equal(t, "fresh", ev.Current.Credential.AccessToken)
	require.Equal(t, "abc", ev.Previous.Credential.AccessToken)
	require.Equal(t, 1.0, counterValue(t, f.reg, "portal_session_refresh_total", "success"))
}

func TestManager_RefreshIsDeduplicated(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)

	gate := make(chan struct{})
	f.authn.refreshGate = gate
	f.authn.refreshEntry = make(chan struct{}, 1)

	const callers = 10
	var (
		ready   sync.WaitGroup
		done    sync.WaitGroup
		results = make([]token.Credential, callers)
		errs    = make([]error, callers)
	)
	ready.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			ready.Done()
			results[i], errs[i] = f.manager.Refresh(context.Background())
		}(i)
	}

	ready.Wait()
	<-f.authn.refreshEntry
	time.Sleep(100 * time.Millisecond)
	close(gate)
	done.Wait()

	require.Equal(t, int32(1), f.authn.refreshCalls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "fresh", results[i].AccessToken)
	}
	require.Equal(t, 1.0, counterValue(t, f.reg, "portal_session_refresh_total", "success"))
	require.Equal(t, float64(callers), counterValue(t, f.reg, "portal_session_refresh_shared_total", ""))
}

func TestManager_LoneRefreshIsNotShared(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)

	_, err := f.manager.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1.0, counterValue(t, f.reg, "portal_session_refresh_total", "success"))
	require.Zero(t, counterValue(t, f.reg, "portal_session_refresh_shared_total", ""))
}

func TestManager_RefreshWithoutRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.authn.loginResp = &auth.LoginResponse{Credential: token.Credential{AccessToken: "abc"}, Profile: testProfile(users.StatusActive)}
	_, err := f.manager.Login(context.Background(), auth.LoginRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)

	_, err = f.manager.Refresh(context.Background())
	require.ErrorIs(t, err, sessions.ErrRefreshFailure)
	require.ErrorIs(t, err, sessions.ErrNoRefreshToken)

	require.Zero(t, f.authn.refreshCalls.Load())
	require.Equal(t, sessions.Anonymous, f.manager.State().Kind)
	require.Nil(t, f.store.LoadCredential())
	require.ErrorIs(t, f.events.last().Reason, sessions.ErrRefreshFailure)
	require.Equal(t, 1.0, counterValue(t, f.reg, "portal_session_refresh_total", "no_token"))
}

func TestManager_RefreshExhausted(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)
	f.authn.refreshErr = &auth.Error{Op: "refresh", Status: 401, Err: auth.ErrRefreshRejected}

	_, err := f.manager.Refresh(context.Background())
	require.ErrorIs(t, err, sessions.ErrRefreshFailure)
	require.ErrorIs(t, err, auth.ErrRefreshRejected)

	require.Equal(t, sessions.Anonymous, f.manager.State().Kind)
	require.Nil(t, f.store.LoadCredential())
	require.Nil(t, f.store.LoadProfile())

	ev := f.events.last()
	require.True(t, ev.Forced())
	require.ErrorIs(t, ev.Reason, sessions.ErrRefreshFailure)
	require.Equal(t, sessions.Active, ev.Previous.Kind)
	require.Equal(t, sessions.Anonymous, ev.Current.Kind)
	require.Equal(t, 1.0, counterValue(t, f.reg, "portal_session_refresh_total", "failure"))
}

func TestManager_RefreshResultDiscardedAfterLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)

	gate := make(chan struct{})
	f.authn.refreshGate = gate
	f.authn.refreshEntry = make(chan struct{}, 1)

	errCh := make(chan error, 1)
	go func() {
		_, err := f.manager.Refresh(context.Background())
		errCh <- err
	}()
	<-f.authn.refreshEntry

	f.manager.Logout(context.Background())
	close(gate)

	err := <-errCh
	require.ErrorIs(t, err, sessions.ErrRefreshFailure)
	require.ErrorIs(t, err, sessions.ErrSessionChanged)
	require.Equal(t, sessions.Anonymous, f.manager.State().Kind)
	require.Nil(t, f.store.LoadCredential())
	require.Equal(t, 1.0, counterValue(t, f.reg, "portal_session_refresh_total", "stale"))
}

func TestManager_RefreshSurvivesOneCallerCancelling(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)

	gate := make(chan struct{})
	f.authn.refreshGate = gate
	f.authn.refreshEntry = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancelledErr := make(chan error, 1)
	go func() {
		_, err := f.manager.Refresh(ctx)
		cancelledErr <- err
	}()
	<-f.authn.refreshEntry

	patientResult := make(chan token.Credential, 1)
	go func() {
		cred, err := f.manager.Refresh(context.Background())
		require.NoError(t, err)
		patientResult <- cred
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	err := <-cancelledErr
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, sessions.ErrRefreshFailure)

	close(gate)
	require.Equal(t, "fresh", (<-patientResult).AccessToken)
	require.Equal(t, sessions.Active, f.manager.State().Kind)
	require.Equal(t, int32(1), f.authn.refreshCalls.Load())
}

func TestManager_RefreshDeadlineLeavesSessionIntact(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)

	gate := make(chan struct{})
	f.authn.refreshGate = gate

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.manager.Refresh(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotErrorIs(t, err, sessions.ErrRefreshFailure)
	require.Equal(t, sessions.Active, f.manager.State().Kind)
	require.NotNil(t, f.store.LoadCredential())

	close(gate)
	require.Eventually(t, func() bool {
		tok, ok := f.manager.AccessToken()
		return ok && tok == "fresh"
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, sessions.Active, f.manager.State().Kind)
	require.Equal(t, "fresh", f.store.LoadCredential().AccessToken)
}

func TestManager_RefreshTimeout(t *testing.T) {
	f := setupTestFixture(t, sessions.WithRefreshTimeout(50*time.Millisecond))
	f.login(t, users.StatusActive)
	f.authn.refreshGate = make(chan struct{})
	t.Cleanup(func() { close(f.authn.refreshGate) })

	_, err := f.manager.Refresh(context.Background())
	require.ErrorIs(t, err, sessions.ErrRefreshFailure)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, sessions.Anonymous, f.manager.State().Kind)
}

func TestManager_LogoutFromAnyState(t *testing.T) {
	tests := []struct {
		name   string
		status users.AccountStatus
	}{
		{name: "active", status: users.StatusActive},
		{name: "pending verification", status: users.StatusInactive},
		{name: "suspended", status: users.StatusSuspended},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.login(t, tt.status)
			f.authn.logoutErr = errors.New("backend down")

			var st sessions.State
			require.NotPanics(t, func() {
				st = f.manager.Logout(context.Background())
			})
			require.Equal(t, sessions.Anonymous, st.Kind)
			require.Nil(t, f.store.LoadCredential())
			require.Nil(t, f.store.LoadProfile())
		})
	}
}

func TestManager_LogoutSkipsBackendWithoutCredential(t *testing.T) {
	f := setupTestFixture(t)

	f.manager.Logout(context.Background())
	f.login(t, users.StatusSuspended)
	f.manager.Logout(context.Background())

	require.Zero(t, f.authn.logoutCalls)
}

func TestManager_Invalidate(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)

	f.manager.Invalidate(sessions.ErrRefreshFailure)

	require.Equal(t, sessions.Anonymous, f.manager.State().Kind)
	require.Nil(t, f.store.LoadCredential())
	ev := f.events.last()
	require.ErrorIs(t, ev.Reason, sessions.ErrRefreshFailure)

	before := len(f.events.all())
	f.manager.Invalidate(sessions.ErrRefreshFailure)
	require.Len(t, f.events.all(), before)
}

func TestManager_InvalidateToken(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)

	require.False(t, f.manager.InvalidateToken("stale", sessions.ErrRefreshFailure))
	require.Equal(t, sessions.Active, f.manager.State().Kind)
	require.NotNil(t, f.store.LoadCredential())

	require.True(t, f.manager.InvalidateToken(testCredential.AccessToken, sessions.ErrRefreshFailure))
	require.Equal(t, sessions.Anonymous, f.manager.State().Kind)
	require.Nil(t, f.store.LoadCredential())
	require.ErrorIs(t, f.events.last().Reason, sessions.ErrRefreshFailure)

	require.False(t, f.manager.InvalidateToken(testCredential.AccessToken, sessions.ErrRefreshFailure))
}

func TestManager_EventsCarryIncreasingSeq(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)
	_, err := f.manager.Refresh(context.Background())
	require.NoError(t, err)
	f.manager.Logout(context.Background())

	events := f.events.all()
	require.GreaterOrEqual(t, len(events), 3)
	for i := 1; i < len(events); i++ {
		require.Equal(t, events[i-1].Seq+1, events[i].Seq)
	}
	require.Equal(t, f.manager.State().Kind, events[len(events)-1].Current.Kind)
}

func TestManager_ConcurrentTransitionsOrderedBySeq(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusActive)

	var (
		mu     sync.Mutex
		newest sessions.Event
	)
	f.manager.Subscribe(func(ev sessions.Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Seq > newest.Seq {
			newest = ev
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.manager.Logout(context.Background())
		}()
		go func() {
			defer wg.Done()
			_, _ = f.manager.Login(context.Background(), auth.LoginRequest{Email: testEmail, Password: testPassword})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, f.manager.State().Kind, newest.Current.Kind)
}

func TestManager_Verify(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Verify(context.Background(), "123456")
	require.ErrorIs(t, err, sessions.ErrNotVerifiable)

	f.login(t, users.StatusInactive)
	f.authn.verifyProfile = testProfile(users.StatusActive)
	f.authn.verifyProfile.FullName = "Ada King"

	st, err := f.manager.Verify(context.Background(), "123456")
	require.NoError(t, err)
	require.Equal(t, sessions.Active, st.Kind)
	require.Equal(t, "Ada King", f.store.LoadProfile().FullName)
	require.Equal(t, testCredential, *f.store.LoadCredential())
}

func TestManager_VerifyFailureKeepsPending(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, users.StatusInactive)
	f.authn.verifyErr = &auth.Error{Op: "verify-email", Status: 400, Err: auth.ErrInvalidRequest}

	st, err := f.manager.Verify(context.Background(), "000000")
	require.ErrorIs(t, err, auth.ErrInvalidRequest)
	require.Equal(t, sessions.PendingVerification, st.Kind)
}

func TestManager_VerifyUnsupported(t *testing.T) {
	m, err := sessions.NewManager(memstore.New(), &fakeAuth{})
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), "123456")
	require.ErrorIs(t, err, sessions.ErrUnsupported)
}

func TestManager_Subscribe(t *testing.T) {
	f := setupTestFixture(t)

	var (
		order []string
		seen  sessions.State
	)
	f.manager.Subscribe(func(ev sessions.Event) {
		order = append(order, "first")
		// Subscribers may read the manager while being notified.
		seen = f.manager.State()
	})
	unsubscribe := f.manager.Subscribe(func(ev sessions.Event) {
		order = append(order, "second")
	})

	f.login(t, users.StatusActive)
	require.Equal(t, []string{"first", "second"}, order)
	require.Equal(t, sessions.Active, seen.Kind)

	unsubscribe()
	unsubscribe()
	f.manager.Logout(context.Background())
	require.Equal(t, []string{"first", "second", "first"}, order)
}

func TestManager_EventTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := setupTestFixture(t, sessions.WithNowTime(func() time.Time { return now }))

	f.login(t, users.StatusActive)
	require.Equal(t, now, f.events.last().At)
}

func TestManager_TokenSource(t *testing.T) {
	f := setupTestFixture(t)
	ts := f.manager.TokenSource()

	_, err := ts.Token()
	require.ErrorIs(t, err, sessions.ErrNoSession)

	f.login(t, users.StatusActive)
	tok, err := ts.Token()
	require.NoError(t, err)
	require.Equal(t, "abc", tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "anonymous", sessions.Anonymous.String())
	require.Equal(t, "active", sessions.Active.String())
	require.Equal(t, "pending_verification", sessions.PendingVerification.String())
	require.Equal(t, "suspended", sessions.Suspended.String())
}
