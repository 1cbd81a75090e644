package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/sitecheck"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file and URL list",
		Long: `Validate settings and, optionally, a URL list without polling.

Settings are read from the config file and SITECHECK_* variables. The URL
list comes from --file, or from the urls key of the config. Malformed URL
lines are listed by their 1-based line number.

Exit codes:
  0 - Settings and URLs are valid
  1 - Something is invalid (details printed to stderr)

Example:
  sitecheck validate -c sitecheck.yaml
  sitecheck validate -c sitecheck.yaml -f urls.txt`,
		RunE: runValidate,
	}
	addInputFlags(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Timeout:   %s\n", cfg.Timeout)
	fmt.Fprintf(out, "  Interval:  %s\n", cfg.Interval)
	fmt.Fprintf(out, "  Row limit: %d\n", cfg.RowLimit)
	fmt.Fprintf(out, "  Port:      %d\n", cfg.Port)

	path, _ := cmd.Flags().GetString("file")
	if path == "" && len(cfg.URLs) == 0 {
		return nil
	}

	text, err := readURLText(cmd, cfg)
	if err != nil {
		return err
	}

	v := sitecheck.ValidateText(text)
	if err := v.Err(); err != nil {
		for _, l := range v.Invalid() {
			fmt.Fprintf(out, "  line %d: %q\n", l.Index+1, l.Line)
		}
		return err
	}

	urls, err := sitecheck.ParseURLs(v.URLs())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  URLs:      %d (%d distinct)\n", len(v.Lines), len(urls))
	return nil
}
