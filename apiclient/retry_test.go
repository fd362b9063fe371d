package apiclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/jrsteele09/go-portal-session/apiclient"
	"github.com/jrsteele09/go-portal-session/token"
	"github.com/stretchr/testify/require"
)

// fakeSession is a Session with scripted refresh results.
type fakeSession struct {
	mu           sync.Mutex
	access       string
	refreshTo    string
	refreshErr   error
	refreshCalls int
	invalidated  []error
}

func (s *fakeSession) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.access != ""
}

func (s *fakeSession) Refresh(ctx context.Context) (token.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if s.refreshErr != nil {
		s.access = ""
		return token.Credential{}, s.refreshErr
	}
	s.access = s.refreshTo
	return token.Credential{AccessToken: s.refreshTo, RefreshToken: "xyz"}, nil
}

func (s *fakeSession) InvalidateToken(accessToken string, reason error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access != accessToken {
		return false
	}
	s.access = ""
	s.invalidated = append(s.invalidated, reason)
	return true
}

func (s *fakeSession) setAccess(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = tok
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}
}

// recordingSend answers with statuses in order and records the tokens it was given.
type recordingSend struct {
	statuses []int
	tokens   []string
	before   func(attempt int)
}

func (r *recordingSend) send(accessToken string) (*http.Response, error) {
	attempt := len(r.tokens)
	r.tokens = append(r.tokens, accessToken)
	if r.before != nil {
		r.before(attempt)
	}
	return response(r.statuses[attempt]), nil
}

func TestRetryOnceAfterRefresh_Success(t *testing.T) {
	sess := &fakeSession{access: "abc", refreshTo: "fresh"}
	rec := &recordingSend{statuses: []int{http.StatusOK}}

	resp, err := apiclient.RetryOnceAfterRefresh(context.Background(), sess, rec.send)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"abc"}, rec.tokens)
	require.Zero(t, sess.refreshCalls)
}

func TestRetryOnceAfterRefresh_RefreshesOn401(t *testing.T) {
	sess := &fakeSession{access: "abc", refreshTo: "fresh"}
	rec := &recordingSend{statuses: []int{http.StatusUnauthorized, http.StatusOK}}

	resp, err := apiclient.RetryOnceAfterRefresh(context.Background(), sess, rec.send)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"abc", "fresh"}, rec.tokens)
	require.Equal(t, 1, sess.refreshCalls)
}

func TestRetryOnceAfterRefresh_UsesTokenRefreshedElsewhere(t *testing.T) {
	sess := &fakeSession{access: "abc", refreshTo: "unused"}
	rec := &recordingSend{
		statuses: []int{http.StatusUnauthorized, http.StatusOK},
		before: func(attempt int) {
			if attempt == 0 {
				// Another request refreshed while this one was in flight.
				sess.setAccess("fresh")
			}
		},
	}

	_, err := apiclient.RetryOnceAfterRefresh(context.Background(), sess, rec.send)
	require.NoError(t, err)
	require.Equal(t, []string{"abc", "fresh"}, rec.tokens)
	require.Zero(t, sess.refreshCalls)
}

func TestRetryOnceAfterRefresh_RefreshFailure(t *testing.T) {
	sess := &fakeSession{access: "abc", refreshErr: errors.New("rejected")}
	rec := &recordingSend{statuses: []int{http.StatusUnauthorized}}

	resp, err := apiclient.RetryOnceAfterRefresh(context.Background(), sess, rec.send)
	require.Nil(t, resp)
	require.ErrorIs(t, err, apiclient.ErrRefreshFailure)
	require.Len(t, rec.tokens, 1)
}

func TestRetryOnceAfterRefresh_SecondUnauthorizedInvalidates(t *testing.T) {
	sess := &fakeSession{access: "abc", refreshTo: "fresh"}
	rec := &recordingSend{statuses: []int{http.StatusUnauthorized, http.StatusUnauthorized}}

	resp, err := apiclient.RetryOnceAfterRefresh(context.Background(), sess, rec.send)
	require.Nil(t, resp)
	require.ErrorIs(t, err, apiclient.ErrRefreshFailure)
	require.Len(t, rec.tokens, 2)
	require.Len(t, sess.invalidated, 1)
	require.ErrorIs(t, sess.invalidated[0], apiclient.ErrRefreshFailure)
}

func TestRetryOnceAfterRefresh_SecondUnauthorizedSparesNewerSession(t *testing.T) {
	sess := &fakeSession{access: "abc", refreshTo: "fresh"}
	rec := &recordingSend{
		statuses: []int{http.StatusUnauthorized, http.StatusUnauthorized},
		before: func(attempt int) {
			if attempt == 1 {
				// The user logged in again while the retry was in flight.
				sess.setAccess("relogged")
			}
		},
	}

	_, err := apiclient.RetryOnceAfterRefresh(context.Background(), sess, rec.send)
	require.ErrorIs(t, err, apiclient.ErrRefreshFailure)
	require.Empty(t, sess.invalidated)
	tok, ok := sess.AccessToken()
	require.True(t, ok)
	require.Equal(t, "relogged", tok)
}

func TestRetryOnceAfterRefresh_CallerGaveUpDuringRefresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &fakeSession{access: "abc"}
	rec := &recordingSend{
		statuses: []int{http.StatusUnauthorized},
		before: func(int) {
			cancel()
			sess.mu.Lock()
			sess.refreshErr = ctx.Err()
			sess.mu.Unlock()
		},
	}

	resp, err := apiclient.RetryOnceAfterRefresh(ctx, sess, rec.send)
	require.Nil(t, resp)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, apiclient.ErrRefreshFailure)
}

func TestRetryOnceAfterRefresh_TransportErrorIsNotRetried(t *testing.T) {
	sess := &fakeSession{access: "abc", refreshTo: "fresh"}
	boom := errors.New("connection reset")
	calls := 0

	_, err := apiclient.RetryOnceAfterRefresh(context.Background(), sess, func(string) (*http.Response, error) {
		calls++
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
	require.Zero(t, sess.refreshCalls)
}

func TestRetryOnceAfterRefresh_AnonymousRefreshes(t *testing.T) {
	sess := &fakeSession{refreshErr: apiclient.ErrRefreshFailure}
	rec := &recordingSend{statuses: []int{http.StatusUnauthorized}}

	_, err := apiclient.RetryOnceAfterRefresh(context.Background(), sess, rec.send)
	require.ErrorIs(t, err, apiclient.ErrRefreshFailure)
	require.Equal(t, []string{""}, rec.tokens)
}
