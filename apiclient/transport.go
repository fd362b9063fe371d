package apiclient

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type skipAuthKey struct{}

// WithoutAuth marks requests made with ctx as public: no bearer token is
// attached and a 401 is returned as is.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthKey{}, true)
}

func skipAuth(ctx context.Context) bool {
	v, _ := ctx.Value(skipAuthKey{}).(bool)
	return v
}

var _ http.RoundTripper = (*Transport)(nil)

// Transport attaches the session's bearer token and a request id to every
// request, and recovers from a 401 with RetryOnceAfterRefresh. Requests whose
// body cannot be replayed are sent once and a 401 is returned unchanged.
type Transport struct {
	Base    http.RoundTripper
	Session Session
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	attempt := 0
	send := func(accessToken string) (*http.Response, error) {
		r := req.Clone(req.Context())
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}
		attempt++

		r.Header.Set(RequestIDHeader, requestID)
		if accessToken != "" {
			r.Header.Set("Authorization", "Bearer "+accessToken)
		}
		return t.base().RoundTrip(r)
	}

	if skipAuth(req.Context()) || t.Session == nil {
		return send("")
	}
	if !replayable(req) {
		accessToken, _ := t.Session.AccessToken()
		return send(accessToken)
	}
	return RetryOnceAfterRefresh(req.Context(), t.Session, send)
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}
