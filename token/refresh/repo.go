package refresh

import (
	"time"
)

// StoredRefreshToken is the backend's record of an issued refresh token.
// The client only ever receives Token; everything else stays server side.
type StoredRefreshToken struct {
	Token  string    // Random hex string handed to the client
	UserID string    // Account the token renews access for
	Iat    time.Time // Issued at
}

// Repo stores refresh token records keyed by the token string. A user may
// hold several tokens at once, one per logged in device or profile.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	ListByUserID(userID string) ([]*StoredRefreshToken, error)
	DeleteByUserID(userID string) (int, error)
}
