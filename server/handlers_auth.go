package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/users"
)

const resetTokenTTL = time.Hour

type loginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	UserProfile  *users.Profile `json:"userProfile"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type profileResponse struct {
	UserProfile *users.Profile `json:"userProfile"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type codeRequest struct {
	Code string `json:"code"`
}

// LoginHandler exchanges email and password for an access token, a refresh
// token and the account profile. Suspended accounts get an access token only
// so the client can route them without being able to stay logged in.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		account, err := s.accounts.GetByEmail(req.Email)
		if err != nil || !users.CheckPasswordHash(req.Password, account.PasswordHash) {
			// Don't reveal if user exists or not
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		accessToken, err := s.issueAccessToken(&account.Profile)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to issue access token")
			writeError(w, http.StatusInternalServerError, "failed to issue tokens")
			return
		}

		var refreshToken string
		if account.Profile.AccountStatus != users.StatusSuspended {
			refreshToken, err = s.refreshTokens.Create(account.Profile.ID)
			if err != nil {
				s.logger.Error().Err(err).Msg("failed to issue refresh token")
				writeError(w, http.StatusInternalServerError, "failed to issue tokens")
				return
			}
		}

		if err := s.accounts.SetLastLogin(account.Profile.Email, s.nowTime()); err != nil {
			s.logger.Warn().Err(err).Str("email", account.Profile.Email).Msg("failed to record last login")
		}
		s.logger.Info().Str("email", account.Profile.Email).Str("status", string(account.Profile.AccountStatus)).Msg("login")

		writeJSON(w, http.StatusOK, loginResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			UserProfile:  &account.Profile,
		})
	}
}

// RefreshTokenHandler issues a new access token for a valid refresh token.
// The refresh token itself is not rotated.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refreshToken is required")
			return
		}

		rt, err := s.refreshTokens.Validate(req.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		account, err := s.accounts.GetByID(rt.UserID)
		if err != nil {
			_ = s.refreshTokens.Revoke(req.RefreshToken)
			writeError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		if account.Profile.AccountStatus == users.StatusSuspended {
			if _, err := s.refreshTokens.RevokeAll(account.Profile.ID); err != nil {
				s.logger.Warn().Err(err).Str("email", account.Profile.Email).Msg("failed to revoke refresh tokens")
			}
			writeError(w, http.StatusUnauthorized, "account suspended")
			return
		}

		accessToken, err := s.issueAccessToken(&account.Profile)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to issue access token")
			writeError(w, http.StatusInternalServerError, "failed to issue access token")
			return
		}
		writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: accessToken})
	}
}

// LogoutHandler revokes the refresh token in the body, if any.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		if req.RefreshToken != "" {
			if err := s.refreshTokens.Revoke(req.RefreshToken); err != nil {
				s.logger.Warn().Err(err).Msg("failed to revoke refresh token")
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SignupHandler registers an INACTIVE client account and sends it a
// verification code.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignupRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := s.accounts.GetByEmail(req.Email); err == nil {
			writeError(w, http.StatusConflict, "an account with this email already exists")
			return
		}

		hash, err := users.HashPassword(req.Password)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to hash password")
			writeError(w, http.StatusInternalServerError, "failed to create account")
			return
		}
		code, err := newVerificationCode()
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to generate verification code")
			writeError(w, http.StatusInternalServerError, "failed to create account")
			return
		}

		account := &users.Account{
			Profile: users.Profile{
				ID:            uuid.New().String(),
				FullName:      req.FullName,
				Email:         req.Email,
				Role:          users.RoleClient,
				AccountStatus: users.StatusInactive,
				PhoneNumber:   req.PhoneNumber,
				Industry:      req.Industry,
			},
			PasswordHash:     hash,
			VerificationCode: code,
			DateJoined:       s.nowTime(),
		}
		if err := s.accounts.Upsert(account); err != nil {
			s.logger.Error().Err(err).Msg("failed to store account")
			writeError(w, http.StatusInternalServerError, "failed to create account")
			return
		}

		s.deliverVerificationCode(req.Email, code)
		writeJSON(w, http.StatusCreated, messageResponse{Message: "account created, check your email for a verification code"})
	}
}

// VerifyEmailHandler activates the caller's account when the code matches.
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req codeRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}

		account, err := s.accounts.GetByID(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}

		switch account.Profile.AccountStatus {
		case users.StatusActive:
			writeJSON(w, http.StatusOK, profileResponse{UserProfile: &account.Profile})
			return
		case users.StatusSuspended:
			writeError(w, http.StatusForbidden, "account suspended")
			return
		}

		if req.Code == "" || req.Code != account.VerificationCode {
			writeError(w, http.StatusBadRequest, "invalid verification code")
			return
		}

		account.Profile.AccountStatus = users.StatusActive
		account.VerificationCode = ""
		if err := s.accounts.Upsert(account); err != nil {
			s.logger.Error().Err(err).Msg("failed to activate account")
			writeError(w, http.StatusInternalServerError, "failed to verify email")
			return
		}

		s.logger.Info().Str("email", account.Profile.Email).Msg("email verified")
		writeJSON(w, http.StatusOK, profileResponse{UserProfile: &account.Profile})
	}
}

// ResendVerificationHandler issues a new code to an unverified account. The
// response never reveals whether the email is registered.
func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if err := auth.ValidateEmail(req.Email); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		account, err := s.accounts.GetByEmail(req.Email)
		if err == nil && account.Profile.AccountStatus == users.StatusInactive {
			code, err := newVerificationCode()
			if err != nil {
				s.logger.Error().Err(err).Msg("failed to generate verification code")
				writeError(w, http.StatusInternalServerError, "failed to resend verification")
				return
			}
			account.VerificationCode = code
			if err := s.accounts.Upsert(account); err != nil {
				s.logger.Error().Err(err).Msg("failed to store verification code")
				writeError(w, http.StatusInternalServerError, "failed to resend verification")
				return
			}
			s.deliverVerificationCode(account.Profile.Email, code)
		}

		writeJSON(w, http.StatusAccepted, messageResponse{Message: "if the account exists and is unverified, a new code has been sent"})
	}
}

// ForgotPasswordHandler issues a one hour reset token.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if err := auth.ValidateEmail(req.Email); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if account, err := s.accounts.GetByEmail(req.Email); err == nil {
			account.ResetToken = uuid.New().String()
			account.ResetExpiry = s.nowTime().Add(resetTokenTTL)
			if err := s.accounts.Upsert(account); err != nil {
				s.logger.Error().Err(err).Msg("failed to store reset token")
				writeError(w, http.StatusInternalServerError, "failed to start password reset")
				return
			}
			s.logger.Info().Str("email", account.Profile.Email).Str("reset_token", account.ResetToken).Msg("password reset link sent")
		}

		writeJSON(w, http.StatusAccepted, messageResponse{Message: "if the account exists, a reset link has been sent"})
	}
}

// ResetPasswordHandler sets a new password and revokes every refresh token
// the account holds.
func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ResetPasswordRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		account, err := s.accounts.GetByResetToken(req.Token)
		if err != nil || s.nowTime().After(account.ResetExpiry) {
			writeError(w, http.StatusBadRequest, "invalid or expired reset token")
			return
		}

		hash, err := users.HashPassword(req.NewPassword)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to hash password")
			writeError(w, http.StatusInternalServerError, "failed to reset password")
			return
		}
		account.PasswordHash = hash
		account.ResetToken = ""
		account.ResetExpiry = time.Time{}
		if err := s.accounts.Upsert(account); err != nil {
			s.logger.Error().Err(err).Msg("failed to store new password")
			writeError(w, http.StatusInternalServerError, "failed to reset password")
			return
		}

		revoked, err := s.refreshTokens.RevokeAll(account.Profile.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("email", account.Profile.Email).Msg("failed to revoke refresh tokens")
		}
		s.logger.Info().Str("email", account.Profile.Email).Int("revoked", revoked).Msg("password reset")
		w.WriteHeader(http.StatusNoContent)
	}
}

// deliverVerificationCode stands in for sending an email.
func (s *Server) deliverVerificationCode(email, code string) {
	s.logger.Info().Str("email", email).Str("verification_code", code).Msg("verification code sent")
}
