package server

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-portal-session/users"
)

// DefaultSeedPassword is the password of every demo account.
const DefaultSeedPassword = "Passw0rd1"

// SeedAccount is an account created when the server starts.
type SeedAccount struct {
	Profile  users.Profile
	Password string
}

// DemoAccounts returns one active account per role plus an unverified and
// a suspended client.
func DemoAccounts() []SeedAccount {
	seed := func(name, email string, role users.RoleType, status users.AccountStatus) SeedAccount {
		return SeedAccount{
			Profile: users.Profile{
				FullName:      name,
				Email:         email,
				Role:          role,
				AccountStatus: status,
			},
			Password: DefaultSeedPassword,
		}
	}
	return []SeedAccount{
		seed("Casey Client", "client@portal.test", users.RoleClient, users.StatusActive),
		seed("Avery Admin", "admin@portal.test", users.RoleAdmin, users.StatusActive),
		seed("Sam Super", "super@portal.test", users.RoleSuperAdmin, users.StatusActive),
		seed("Uma Unverified", "unverified@portal.test", users.RoleClient, users.StatusInactive),
		seed("Sid Suspended", "suspended@portal.test", users.RoleClient, users.StatusSuspended),
	}
}

// seedAccounts creates each seed account that does not exist yet.
func (s *Server) seedAccounts(seeds []SeedAccount) error {
	for _, seed := range seeds {
		if _, err := s.accounts.GetByEmail(seed.Profile.Email); err == nil {
			continue
		}

		profile := seed.Profile
		if profile.ID == "" {
			profile.ID = uuid.New().String()
		}
		if err := profile.Normalize(); err != nil {
			return fmt.Errorf("[Server.seedAccounts] %s: %w", seed.Profile.Email, err)
		}

		hash, err := users.HashPassword(seed.Password)
		if err != nil {
			return fmt.Errorf("[Server.seedAccounts] hash password for %s: %w", profile.Email, err)
		}

		account := &users.Account{
			Profile:      profile,
			PasswordHash: hash,
			DateJoined:   s.nowTime(),
		}
		if profile.AccountStatus == users.StatusInactive {
			if account.VerificationCode, err = newVerificationCode(); err != nil {
				return fmt.Errorf("[Server.seedAccounts] %w", err)
			}
		}
		if err := s.accounts.Upsert(account); err != nil {
			return fmt.Errorf("[Server.seedAccounts] store %s: %w", profile.Email, err)
		}
		s.logger.Debug().Str("email", profile.Email).Str("role", string(profile.Role)).Str("status", string(profile.AccountStatus)).Msg("seeded account")
	}
	return nil
}
