package main

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-portal-session/access"
	"github.com/jrsteele09/go-portal-session/sessions"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/stretchr/testify/require"
)

type staticProfile struct {
	profile *users.Profile
}

func (s staticProfile) Profile() *users.Profile {
	return s.profile
}

func TestAccessRows(t *testing.T) {
	tests := []struct {
		role    users.RoleType
		allowed map[string]string
	}{
		{users.RoleClient, map[string]string{
			"client": "yes", "admin": "no", "manage others' records": "no",
			"create CLIENT account": "yes", "create ADMIN account": "no", "create SUPER_ADMIN account": "no",
		}},
		{users.RoleAdmin, map[string]string{
			"admin": "yes", "admin or above": "yes", "manage others' records": "yes",
			"create CLIENT account": "yes", "create ADMIN account": "no",
		}},
		{users.RoleSuperAdmin, map[string]string{
			"super admin": "yes", "admin or above": "yes",
			"create ADMIN account": "yes", "create SUPER_ADMIN account": "yes",
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			policy := access.New(staticProfile{&users.Profile{Role: tt.role}})
			got := map[string]string{}
			for _, row := range accessRows(policy) {
				got[row[0]] = row[1]
			}
			for name, want := range tt.allowed {
				require.Equal(t, want, got[name], name)
			}
		})
	}
}

func TestPrintState(t *testing.T) {
	industry := "Retail"
	var buf bytes.Buffer

	printState(&buf, sessions.State{Kind: sessions.Anonymous})
	require.Contains(t, buf.String(), "Not logged in")

	buf.Reset()
	printState(&buf, sessions.State{
		Kind:    sessions.Active,
		Profile: &users.Profile{FullName: "Ada", Email: "ada@portal.test", Role: users.RoleAdmin, AccountStatus: users.StatusActive, Industry: &industry},
	})
	out := buf.String()
	require.Contains(t, out, "active")
	require.Contains(t, out, "ada@portal.test")
	require.Contains(t, out, "ADMIN")
	require.Contains(t, out, "Retail")
	require.NotContains(t, out, "Phone")
}
