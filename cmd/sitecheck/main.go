// Package main is the entry point for the sitecheck CLI.
//
// sitecheck polls a list of URLs with HTTP HEAD requests and reports the
// status of each one, either continuously or as a one-shot check.
//
// Usage:
//
//	sitecheck watch -c sitecheck.yaml -f urls.txt   # Poll until interrupted
//	sitecheck check -c sitecheck.yaml -f urls.txt   # Poll once and print a report
//	sitecheck validate -c sitecheck.yaml            # Validate configuration
//	sitecheck version                               # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newRootCmd builds the command tree. A fresh tree per execution keeps flag
// values from leaking between runs in tests.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sitecheck",
		Short: "Poll URLs with HEAD requests and report their status",
		Long: `sitecheck checks a list of URLs with HTTP HEAD requests.

Each poll cycle sends one request per URL and reports the status code, or
the reason no response arrived (timeout, DNS, refused connection, TLS).
The next cycle starts a fixed interval after the previous one finished.

Quick start:
  1. Create a config file (sitecheck.yaml):
       DefaultTimeout: 5000
       DefaulURLRowLimit: 20
       DefaulTimerInterval: 60000
  2. List one URL per line in urls.txt
  3. Run: sitecheck watch -c sitecheck.yaml -f urls.txt
  4. Browse http://localhost:8080/api/results`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newWatchCmd(),
		newCheckCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this sitecheck binary.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sitecheck %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// cobra already prints the error
		os.Exit(1)
	}
}
