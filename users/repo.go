package users

import "time"

// Account is the backend's record of a user: the profile plus credentials and
// the one-time codes used by the verification and password reset flows.
type Account struct {
	Profile          Profile
	PasswordHash     string
	VerificationCode string
	ResetToken       string
	ResetExpiry      time.Time
	DateJoined       time.Time
	LastLogin        time.Time
}

type AccountRepo interface {
	Upsert(account *Account) error
	Delete(email string) error
	GetByEmail(email string) (*Account, error)
	GetByID(id string) (*Account, error)
	GetByResetToken(token string) (*Account, error)
	SetStatus(email string, status AccountStatus) error
	SetLastLogin(email string, at time.Time) error
}
