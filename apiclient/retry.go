package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// SendFunc performs one attempt of a request with the given access token.
// An empty token means no Authorization header.
type SendFunc func(accessToken string) (*http.Response, error)

// RetryOnceAfterRefresh sends a request and recovers from a single 401.
//
// If the session's token changed while the request was in flight, someone
// else already refreshed and the request is retried with the new token.
// Otherwise the session is refreshed first. The request is retried exactly
// once; a second 401 invalidates the session, unless it has since moved on
// to another token. Both refresh failure and a second 401 return an error
// wrapping ErrRefreshFailure. When ctx ends while waiting for the refresh,
// ctx's error is returned as is: the session may still be valid.
func RetryOnceAfterRefresh(ctx context.Context, sess Session, send SendFunc) (*http.Response, error) {
	used, _ := sess.AccessToken()

	resp, err := send(used)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	discard(resp)

	next, ok := sess.AccessToken()
	if !ok || next == used {
		cred, err := sess.Refresh(ctx)
		if err != nil {
			if ctx.Err() != nil && !errors.Is(err, ErrRefreshFailure) {
				return nil, err
			}
			if !errors.Is(err, ErrRefreshFailure) {
				err = fmt.Errorf("%w: %w", ErrRefreshFailure, err)
			}
			return nil, err
		}
		next = cred.AccessToken
	}

	resp, err = send(next)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		sess.InvalidateToken(next, ErrRefreshFailure)
		return nil, fmt.Errorf("%w: still unauthorized after refresh", ErrRefreshFailure)
	}
	return resp, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
