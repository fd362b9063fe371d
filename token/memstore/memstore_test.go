package memstore_test

import (
	"testing"

	"github.com/jrsteele09/go-portal-session/token"
	"github.com/jrsteele09/go-portal-session/token/memstore"
	"github.com/jrsteele09/go-portal-session/token/storetest"
	"github.com/stretchr/testify/require"
)

func TestMemStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) token.Store {
		return memstore.New()
	})
}

func TestMemStore_MalformedEntriesAreAbsent(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		data  string
	}{
		{name: "credential not json", entry: token.CredentialEntry, data: "{oops"},
		{name: "credential without access token", entry: token.CredentialEntry, data: `{"refreshToken":"xyz"}`},
		{name: "profile not json", entry: token.ProfileEntry, data: "[]"},
		{name: "profile with unknown role", entry: token.ProfileEntry, data: `{"id":"1","email":"a@b.com","role":"OWNER","accountStatus":"ACTIVE"}`},
		{name: "profile without email", entry: token.ProfileEntry, data: `{"id":"1","role":"CLIENT","accountStatus":"ACTIVE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memstore.New()
			s.SetRaw(tt.entry, []byte(tt.data))

			require.NotPanics(t, func() {
				require.Nil(t, s.LoadCredential())
				require.Nil(t, s.LoadProfile())
			})
		})
	}
}

func TestMemStore_LoadNormalisesLegacyRoleCasing(t *testing.T) {
	s := memstore.New()
	s.SetRaw(token.ProfileEntry, []byte(`{"id":"1","email":"a@b.com","role":"client","accountStatus":"Active"}`))

	p := s.LoadProfile()
	require.NotNil(t, p)
	require.Equal(t, "CLIENT", string(p.Role))
	require.Equal(t, "ACTIVE", string(p.AccountStatus))
}

func TestMemStore_UpdateOverMalformedCredentialIsNoOp(t *testing.T) {
	s := memstore.New()
	s.SetRaw(token.CredentialEntry, []byte("garbage"))

	require.NoError(t, s.UpdateAccessToken("fresh"))
	require.Nil(t, s.LoadCredential())
}
