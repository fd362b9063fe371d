package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownToken = errors.New("unknown refresh token")
	ErrExpiredToken = errors.New("refresh token expired")
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Config is the subset of the backend configuration the manager needs.
type Config interface {
	GetRefreshTokenTTL() time.Duration
	GetRefreshTokenLength() int
}

// Manager handles refresh token creation, validation, and revocation
type Manager struct {
	repo   Repo
	config Config
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg Config) *Manager {
	return &Manager{
		repo:   repo,
		config: cfg,
	}
}

// Create generates a new refresh token for userID and stores it
func (m *Manager) Create(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("[Manager.Create] userID is required")
	}

	tokenBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("[Manager.Create] failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("[Manager.Create] failed to store refresh token: %w", err)
	}

	return tokenStr, nil
}

// Validate returns the record for token when it exists and has not expired.
// Expired tokens are deleted on sight.
func (m *Manager) Validate(token string) (*StoredRefreshToken, error) {
	rt, err := m.repo.Get(token)
	if err != nil || rt == nil {
		return nil, ErrUnknownToken
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(token)
		return nil, ErrExpiredToken
	}
	return rt, nil
}

// Revoke removes a single refresh token. Revoking an unknown token is not an error.
func (m *Manager) Revoke(token string) error {
	if _, err := m.repo.Get(token); err != nil {
		return nil
	}
	return m.repo.Delete(token)
}

// RevokeAll removes every refresh token held by userID, e.g. after a password reset.
func (m *Manager) RevokeAll(userID string) (int, error) {
	return m.repo.DeleteByUserID(userID)
}

// IsExpired checks if a refresh token has outlived the configured TTL
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return NowTimeFunc().Sub(rt.Iat) > m.config.GetRefreshTokenTTL()
}
