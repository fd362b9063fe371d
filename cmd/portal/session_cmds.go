package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jrsteele09/go-portal-session/access"
	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/sessions"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	Long: `Log in with email and password. The password may also be given in the
PORTAL_PASSWORD environment variable.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and clear the token store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := app.commandContext(cmd)
		defer cancel()

		printState(app.out, app.manager.Logout(ctx))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session and what it is allowed to do",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := app.manager.State()
		printState(app.out, st)
		if !st.Authenticated() {
			return nil
		}
		fmt.Fprintln(app.out)
		return printAccessMatrix(app.out, access.New(app.manager))
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <code>",
	Short: "Verify the account email with the code that was sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := app.commandContext(cmd)
		defer cancel()

		st, err := app.manager.Verify(ctx, args[0])
		if err != nil && !errors.Is(err, sessions.ErrStorageFailure) {
			return err
		}
		warnStorage(err)
		printState(app.out, st)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, verifyCmd)

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("PORTAL_PASSWORD")
	}

	ctx, cancel := app.commandContext(cmd)
	defer cancel()

	st, err := app.manager.Login(ctx, auth.LoginRequest{Email: email, Password: password})
	if err != nil && !errors.Is(err, sessions.ErrStorageFailure) {
		return describeAuthError(err)
	}
	warnStorage(err)

	if st.Authenticated() {
		success.Fprintln(app.out, "Logged in.")
	}
	printState(app.out, st)
	return nil
}

// warnStorage reports a session that works now but will not survive the process.
func warnStorage(err error) {
	if err != nil {
		warning.Fprintf(os.Stderr, "warning: session could not be saved and will end with this command: %v\n", err)
	}
}

// describeAuthError prefers the backend's message over the error chain.
func describeAuthError(err error) error {
	var authErr *auth.Error
	if errors.As(err, &authErr) && authErr.Message != "" {
		return fmt.Errorf("%s: %w", authErr.Message, err)
	}
	return err
}
