package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Authenticated GET against the portal API",
	Long: `Send a GET with the session's bearer token and print the JSON response.
An expired access token is refreshed once and the request retried.

Examples:
  portal get /api/users/me
  portal get /api/bookings`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := app.commandContext(cmd)
		defer cancel()

		var body json.RawMessage
		if err := app.api.GetJSON(ctx, args[0], &body); err != nil {
			return err
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, body, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(body)
		}
		fmt.Fprintln(app.out, pretty.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
