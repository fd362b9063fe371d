package errors

import (
	"errors"
	"fmt"
)

// Common error types for the portal session core
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidResponse    = errors.New("invalid response from auth backend")
	ErrNotVerifiable      = errors.New("session is not pending verification")

	// Transport errors
	ErrNetwork = errors.New("network error")
	ErrTimeout = errors.New("request timed out")

	// Token errors
	ErrRefreshFailure  = errors.New("refresh failure")
	ErrRefreshRejected = errors.New("refresh token rejected")
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrSessionChanged  = errors.New("session changed during refresh")
	ErrNoSession       = errors.New("no active session")

	// Storage errors
	ErrStorageFailure = errors.New("storage failure")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
