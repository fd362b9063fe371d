package auth

import (
	"context"

	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/users"
)

// Authenticator is the backend exchange the session manager depends on.
type Authenticator interface {
	// Login exchanges email and password for a credential and the user's profile.
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)

	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)

	// Logout tells the backend to drop the refresh token. Best effort.
	Logout(ctx context.Context, cred token.Credential) error
}

// AccountFlows are the account lifecycle calls that sit next to login.
type AccountFlows interface {
	Signup(ctx context.Context, req SignupRequest) error
	VerifyEmail(ctx context.Context, accessToken, code string) (*users.Profile, error)
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

// LoginResponse is a successful login: the credential and a normalised profile.
type LoginResponse struct {
	Credential token.Credential
	Profile    *users.Profile
}
