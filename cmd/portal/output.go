package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jrsteele09/go-portal-session/access"
	"github.com/jrsteele09/go-portal-session/internal/utils"
	"github.com/jrsteele09/go-portal-session/sessions"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	faint   = color.New(color.Faint)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	bold    = color.New(color.Bold)
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
}

// printState writes the session kind and, when logged in, the profile.
func printState(w io.Writer, st sessions.State) {
	bold.Fprintf(w, "Session: %s\n", st.Kind)
	switch st.Kind {
	case sessions.Anonymous:
		fmt.Fprintln(w, "Not logged in.")
		return
	case sessions.Suspended:
		warning.Fprintln(w, "This account is suspended. Contact support.")
		return
	case sessions.PendingVerification:
		warning.Fprintln(w, "Check your email and run `portal verify <code>`.")
	}

	p := st.Profile
	fmt.Fprintf(w, "Name:     %s\n", p.FullName)
	fmt.Fprintf(w, "Email:    %s\n", p.Email)
	fmt.Fprintf(w, "Role:     %s\n", p.Role)
	fmt.Fprintf(w, "Status:   %s\n", p.AccountStatus)
	if phone := utils.Value(p.PhoneNumber); phone != "" {
		fmt.Fprintf(w, "Phone:    %s\n", phone)
	}
	if industry := utils.Value(p.Industry); industry != "" {
		fmt.Fprintf(w, "Industry: %s\n", industry)
	}
}

// accessRows lists every access predicate for the policy's current profile.
func accessRows(policy *access.Policy) [][]string {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	rows := [][]string{
		{"client", yesNo(policy.IsClient())},
		{"admin", yesNo(policy.IsAdmin())},
		{"super admin", yesNo(policy.IsSuperAdmin())},
		{"admin or above", yesNo(policy.IsAtLeastAdmin())},
		{"manage others' records", yesNo(policy.CanManageOthersRecords())},
	}
	for _, role := range users.Roles {
		rows = append(rows, []string{"create " + string(role) + " account", yesNo(policy.CanCreateAccountWithRole(role))})
	}
	return rows
}

func printAccessMatrix(w io.Writer, policy *access.Policy) error {
	table := newTable(w)
	table.Header([]string{"Permission", "Allowed"})
	if err := table.Bulk(accessRows(policy)); err != nil {
		return err
	}
	return table.Render()
}
