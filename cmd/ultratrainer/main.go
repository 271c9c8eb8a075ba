// ABOUTME: Entry point for the ultratrainer CLI.
// ABOUTME: Invokes the root Cobra command.
package main

import (
	"os"

	"github.com/fatih/color"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
