package main

import (
	"github.com/jrsteele09/go-portal-session/auth"
	"github.com/jrsteele09/go-portal-session/internal/utils"
	"github.com/spf13/cobra"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new client account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := auth.SignupRequest{}
		req.FullName, _ = cmd.Flags().GetString("name")
		req.Email, _ = cmd.Flags().GetString("email")
		req.Password, _ = cmd.Flags().GetString("password")
		phone, _ := cmd.Flags().GetString("phone")
		industry, _ := cmd.Flags().GetString("industry")
		req.PhoneNumber = utils.NonEmpty(phone)
		req.Industry = utils.NonEmpty(industry)

		ctx, cancel := app.commandContext(cmd)
		defer cancel()

		if err := app.authn.Signup(ctx, req); err != nil {
			return describeAuthError(err)
		}
		success.Fprintln(app.out, "Account created. Log in, then run `portal verify <code>` with the code from your email.")
		return nil
	},
}

var resendVerificationCmd = &cobra.Command{
	Use:   "resend-verification <email>",
	Short: "Send a new email verification code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := app.commandContext(cmd)
		defer cancel()

		if err := app.authn.ResendVerification(ctx, args[0]); err != nil {
			return describeAuthError(err)
		}
		success.Fprintln(app.out, "If the account is awaiting verification, a new code is on its way.")
		return nil
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password <email>",
	Short: "Request a password reset token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := app.commandContext(cmd)
		defer cancel()

		if err := app.authn.ForgotPassword(ctx, args[0]); err != nil {
			return describeAuthError(err)
		}
		success.Fprintln(app.out, "If the account exists, a reset link is on its way.")
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password with a reset token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := auth.ResetPasswordRequest{}
		req.Token, _ = cmd.Flags().GetString("token")
		req.NewPassword, _ = cmd.Flags().GetString("new-password")

		ctx, cancel := app.commandContext(cmd)
		defer cancel()

		if err := app.authn.ResetPassword(ctx, req); err != nil {
			return describeAuthError(err)
		}
		success.Fprintln(app.out, "Password updated. Log in again on every device.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signupCmd, resendVerificationCmd, forgotPasswordCmd, resetPasswordCmd)

	signupCmd.Flags().String("name", "", "full name")
	signupCmd.Flags().String("email", "", "account email")
	signupCmd.Flags().String("password", "", "account password")
	signupCmd.Flags().String("phone", "", "phone number (optional)")
	signupCmd.Flags().String("industry", "", "industry (optional)")

	resetPasswordCmd.Flags().String("token", "", "reset token from the email")
	resetPasswordCmd.Flags().String("new-password", "", "new password")
}
