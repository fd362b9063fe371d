package auth

import (
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-portal-session/internal/errors"
)

var (
	ErrInvalidCredentials = apperrors.ErrInvalidCredentials
	ErrInvalidRequest     = apperrors.ErrInvalidRequest
	ErrInvalidResponse    = apperrors.ErrInvalidResponse
	ErrNetwork            = apperrors.ErrNetwork
	ErrTimeout            = apperrors.ErrTimeout
	ErrRefreshRejected    = apperrors.ErrRefreshRejected
)

// Error is a failed backend call. Err holds the classification sentinel and,
// for transport failures, the underlying cause. Message is the backend's
// human readable message when it sent one.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := "auth " + e.Op + ": " + e.Err.Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (%d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

type operation string

const (
	opLogin              operation = "login"
	opRefresh            operation = "refresh"
	opLogout             operation = "logout"
	opSignup             operation = "signup"
	opVerifyEmail        operation = "verify-email"
	opResendVerification operation = "resend-verification"
	opForgotPassword     operation = "forgot-password"
	opResetPassword      operation = "reset-password"
)

// classifyStatus maps a non-2xx status to a sentinel.
func classifyStatus(op operation, status int) error {
	switch op {
	case opLogin:
		switch status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return ErrInvalidCredentials
		}
	case opRefresh:
		return ErrRefreshRejected
	}

	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return ErrNetwork
	}
	return ErrInvalidRequest
}
