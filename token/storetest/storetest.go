// Package storetest holds the behaviour every token.Store implementation must share.
package storetest

import (
	"sync"
	"testing"

	"github.com/jrsteele09/go-portal-session/internal/utils"
	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Stores created by one call must not share state.
type Factory func(t *testing.T) token.Store

func SampleCredential() token.Credential {
	return token.Credential{AccessToken: "abc", RefreshToken: "xyz"}
}

func SampleProfile() *users.Profile {
	return &users.Profile{
		ID:            "user-1",
		FullName:      "Ada Lovelace",
		Email:         "a@b.com",
		Role:          users.RoleClient,
		AccountStatus: users.StatusActive,
		PhoneNumber:   utils.Ptr("+44 7700 900000"),
		Industry:      utils.Ptr("Finance"),
	}
}

// Run exercises the Store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("empty store loads nothing", func(t *testing.T) {
		s := newStore(t)
		require.Nil(t, s.LoadCredential())
		require.Nil(t, s.LoadProfile())
	})

	t.Run("save then load round trips", func(t *testing.T) {
		s := newStore(t)
		cred, profile := SampleCredential(), SampleProfile()

		require.NoError(t, s.Save(cred, profile))

		gotCred := s.LoadCredential()
		require.NotNil(t, gotCred)
		require.Equal(t, cred, *gotCred)

		gotProfile := s.LoadProfile()
		require.NotNil(t, gotProfile)
		require.True(t, profile.Equal(gotProfile), "got %+v", gotProfile)
	})

	t.Run("save replaces previous entries", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(SampleCredential(), SampleProfile()))

		admin := SampleProfile()
		admin.ID = "user-2"
		admin.Role = users.RoleAdmin
		require.NoError(t, s.Save(token.Credential{AccessToken: "a2", RefreshToken: "r2"}, admin))

		require.Equal(t, "a2", s.LoadCredential().AccessToken)
		require.Equal(t, users.RoleAdmin, s.LoadProfile().Role)
	})

	t.Run("save rejects empty credential", func(t *testing.T) {
		s := newStore(t)
		err := s.Save(token.Credential{}, SampleProfile())
		require.ErrorIs(t, err, token.ErrStorageFailure)
		require.Nil(t, s.LoadCredential())
	})

	t.Run("save rejects nil profile", func(t *testing.T) {
		s := newStore(t)
		err := s.Save(SampleCredential(), nil)
		require.ErrorIs(t, err, token.ErrStorageFailure)
		require.Nil(t, s.LoadCredential())
		require.Nil(t, s.LoadProfile())
	})

	t.Run("clear removes both entries", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(SampleCredential(), SampleProfile()))

		require.NoError(t, s.Clear())
		require.Nil(t, s.LoadCredential())
		require.Nil(t, s.LoadProfile())
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Clear())
		require.NoError(t, s.Clear())
	})

	t.Run("update access token keeps refresh token", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(SampleCredential(), SampleProfile()))

		require.NoError(t, s.UpdateAccessToken("fresh"))

		got := s.LoadCredential()
		require.NotNil(t, got)
		require.Equal(t, token.Credential{AccessToken: "fresh", RefreshToken: "xyz"}, *got)
		require.NotNil(t, s.LoadProfile())
	})

	t.Run("update access token without credential is a no-op", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpdateAccessToken("fresh"))
		require.Nil(t, s.LoadCredential())
	})

	t.Run("concurrent readers never see half a save", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(SampleCredential(), SampleProfile()))

		var wg sync.WaitGroup
		stop := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_ = s.Save(SampleCredential(), SampleProfile())
			}
			close(stop)
		}()

		for {
			select {
			case <-stop:
				wg.Wait()
				require.NotNil(t, s.LoadCredential())
				require.NotNil(t, s.LoadProfile())
				return
			default:
				require.NotNil(t, s.LoadCredential())
				require.NotNil(t, s.LoadProfile())
			}
		}
	})
}
