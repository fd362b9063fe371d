package server

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
)

// MeHandler returns the caller's current profile.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		account, err := s.accounts.GetByID(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		writeJSON(w, http.StatusOK, &account.Profile)
	}
}

// NotFoundHandler handles 404 errors
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}
}

// newVerificationCode returns a random six digit code.
func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
