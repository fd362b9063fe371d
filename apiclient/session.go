package apiclient

import (
	"context"

	apperrors "github.com/jrsteele09/go-portal-session/internal/errors"
	"github.com/jrsteele09/go-portal-session/token"
)

var ErrRefreshFailure = apperrors.ErrRefreshFailure

// Session is what the transport needs from the session manager.
// *sessions.Manager satisfies it.
type Session interface {
	// AccessToken returns the token to attach, false when not logged in.
	AccessToken() (string, bool)
	// Refresh renews the access token. Concurrent calls share one exchange.
	Refresh(ctx context.Context) (token.Credential, error)
	// InvalidateToken ends the session after a retried 401, but only while
	// accessToken is still the session's token.
	InvalidateToken(accessToken string, reason error) bool
}
