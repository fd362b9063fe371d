// Command portal is a terminal client for the customer portal: it logs in,
// keeps the session in the configured token store and calls the portal API.
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
