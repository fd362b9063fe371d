package token

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// Credential is the opaque access/refresh token pair issued by the backend.
// The tokens are never parsed here, only stored, attached and replaced.
type Credential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IsZero reports whether the credential carries no access token.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// HasRefreshToken reports whether the credential can be renewed.
func (c Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// OAuth2Token converts the credential to a bearer oauth2.Token. Expiry is
// left zero because the core does not inspect token contents.
func (c Credential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
}

// WithAccessToken returns a copy of c with the access half replaced.
func (c Credential) WithAccessToken(accessToken string) Credential {
	c.AccessToken = accessToken
	return c
}

// String redacts both tokens.
func (c Credential) String() string {
	return fmt.Sprintf("Credential{access:%s refresh:%s}", redact(c.AccessToken), redact(c.RefreshToken))
}

func redact(s string) string {
	if s == "" {
		return "<none>"
	}
	return "<redacted>"
}

var errMalformedCredential = errors.New("malformed credential")

// EncodeCredential serialises a credential for a Store entry.
func EncodeCredential(c Credential) ([]byte, error) {
	if c.IsZero() {
		return nil, errMalformedCredential
	}
	return json.Marshal(c)
}

// DecodeCredential parses a stored credential entry.
func DecodeCredential(data []byte) (*Credential, error) {
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedCredential, err)
	}
	if c.IsZero() {
		return nil, errMalformedCredential
	}
	return &c, nil
}
