package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	loginPath              = "/auth/login"
	refreshPath            = "/auth/refresh-token"
	logoutPath             = "/auth/logout"
	signupPath             = "/auth/signup"
	verifyEmailPath        = "/auth/verify-email"
	resendVerificationPath = "/auth/resend-verification"
	forgotPasswordPath     = "/auth/forgot-password"
	resetPasswordPath      = "/auth/reset-password"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	_ Authenticator = (*HTTPClient)(nil)
	_ AccountFlows  = (*HTTPClient)(nil)
)

// HTTPClient talks to the portal REST backend. It owns its http.Client so
// auth calls never pass through the bearer-attaching transport.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

type Option func(*HTTPClient)

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client, e.g. with an httptest server's client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = l
	}
}

func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("[NewHTTPClient] baseURL is required")
	}

	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type loginBody struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	UserProfile  *users.Profile `json:"userProfile"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

type accessTokenBody struct {
	AccessToken string `json:"accessToken"`
}

type profileBody struct {
	UserProfile *users.Profile `json:"userProfile"`
}

type emailBody struct {
	Email string `json:"email"`
}

type codeBody struct {
	Code string `json:"code"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (c *HTTPClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var body loginBody
	if err := c.call(ctx, opLogin, loginPath, "", req, &body); err != nil {
		return nil, err
	}

	if body.AccessToken == "" {
		return nil, invalidResponse(opLogin, "missing accessToken")
	}
	if err := body.UserProfile.Normalize(); err != nil {
		return nil, invalidResponse(opLogin, err.Error())
	}

	return &LoginResponse{
		Credential: token.Credential{AccessToken: body.AccessToken, RefreshToken: body.RefreshToken},
		Profile:    body.UserProfile,
	}, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", &Error{Op: string(opRefresh), Err: ErrRefreshRejected, Message: "no refresh token"}
	}

	var body accessTokenBody
	if err := c.call(ctx, opRefresh, refreshPath, "", refreshBody{RefreshToken: refreshToken}, &body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", invalidResponse(opRefresh, "missing accessToken")
	}
	return body.AccessToken, nil
}

func (c *HTTPClient) Logout(ctx context.Context, cred token.Credential) error {
	return c.call(ctx, opLogout, logoutPath, cred.AccessToken, refreshBody{RefreshToken: cred.RefreshToken}, nil)
}

func (c *HTTPClient) Signup(ctx context.Context, req SignupRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return c.call(ctx, opSignup, signupPath, "", req, nil)
}

func (c *HTTPClient) VerifyEmail(ctx context.Context, accessToken, code string) (*users.Profile, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &ValidationError{Fields: map[string]string{"code": "is required"}}
	}

	var body profileBody
	if err := c.call(ctx, opVerifyEmail, verifyEmailPath, accessToken, codeBody{Code: strings.TrimSpace(code)}, &body); err != nil {
		return nil, err
	}
	if err := body.UserProfile.Normalize(); err != nil {
		return nil, invalidResponse(opVerifyEmail, err.Error())
	}
	return body.UserProfile, nil
}

func (c *HTTPClient) ResendVerification(ctx context.Context, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return c.call(ctx, opResendVerification, resendVerificationPath, "", emailBody{Email: email}, nil)
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return c.call(ctx, opForgotPassword, forgotPasswordPath, "", emailBody{Email: email}, nil)
}

func (c *HTTPClient) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return c.call(ctx, opResetPassword, resetPasswordPath, "", req, nil)
}

// call POSTs in as JSON and decodes a 2xx body into out when out is non-nil.
func (c *HTTPClient) call(ctx context.Context, op operation, path, bearer string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &Error{Op: string(op), Err: fmt.Errorf("%w: %w", ErrInvalidRequest, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Op: string(op), Err: fmt.Errorf("%w: %w", ErrInvalidRequest, err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		classified := classifyTransport(ctx, err)
		c.logger.Debug().Str("op", string(op)).Err(classified).Dur("elapsed", time.Since(start)).Msg("auth backend call failed")
		return &Error{Op: string(op), Err: classified}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Op: string(op), Status: resp.StatusCode, Err: fmt.Errorf("%w: %w", classifyTransport(ctx, err), err)}
	}

	c.logger.Debug().Str("op", string(op)).Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("auth backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageBody
		_ = json.Unmarshal(data, &msg)
		return &Error{
			Op:      string(op),
			Status:  resp.StatusCode,
			Message: msg.Message,
			Err:     classifyStatus(op, resp.StatusCode),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: string(op), Status: resp.StatusCode, Err: fmt.Errorf("%w: %w", ErrInvalidResponse, err)}
	}
	return nil
}

// classifyTransport maps a failed round trip to ErrTimeout or ErrNetwork,
// keeping the cause in the chain.
func classifyTransport(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
}

func invalidResponse(op operation, detail string) error {
	return &Error{Op: string(op), Err: ErrInvalidResponse, Message: detail}
}
