package sessions

import (
	apperrors "github.com/jrsteele09/go-portal-session/internal/errors"
)

var (
	ErrRefreshFailure  = apperrors.ErrRefreshFailure
	ErrNoRefreshToken  = apperrors.ErrNoRefreshToken
	ErrSessionChanged  = apperrors.ErrSessionChanged
	ErrStorageFailure  = apperrors.ErrStorageFailure
	ErrNotVerifiable   = apperrors.ErrNotVerifiable
	ErrUnsupported     = apperrors.ErrUnsupported
	ErrInvalidResponse = apperrors.ErrInvalidResponse
	ErrNoSession       = apperrors.ErrNoSession
)
