package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/sitecheck"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Poll every URL once and print a report",
		Long: `Poll every URL once and print one line per URL.

The command exits with status 1 when any URL produced no response
(timeout, DNS, refused connection, TLS or other network failure). With
--strict, HTTP statuses of 400 and above count as failures too.

Example:
  sitecheck check -c sitecheck.yaml -f urls.txt
  sitecheck check -c sitecheck.yaml -f urls.txt -o json`,
		RunE: runCheck,
	}
	addInputFlags(cmd)
	cmd.Flags().StringP("output", "o", "table", "output format: table, json or yaml")
	cmd.Flags().Bool("strict", false, "treat HTTP statuses >= 400 as failures")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	strict, _ := cmd.Flags().GetBool("strict")

	var write func(io.Writer, []sitecheck.CheckResult) error
	switch format {
	case "table":
		write = writeTable
	case "json":
		write = writeJSON
	case "yaml":
		write = writeYAML
	default:
		return fmt.Errorf("unknown output format %q (expected table, json or yaml)", format)
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	text, err := readURLText(cmd, cfg)
	if err != nil {
		return err
	}
	urls, err := parseURLText(text)
	if err != nil {
		return err
	}

	results, err := sitecheck.Check(cmd.Context(), urls, cfg.Timeout, engineOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("check interrupted: %w", err)
	}

	if err := write(cmd.OutOrStdout(), results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Failed() || (strict && r.StatusCode >= 400) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d urls failed", failed, len(results))
	}
	return nil
}

func writeTable(w io.Writer, results []sitecheck.CheckResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tSTATUS\tLATENCY")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.URL, r, r.Latency.Round(time.Millisecond))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, results []sitecheck.CheckResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func writeYAML(w io.Writer, results []sitecheck.CheckResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(results); err != nil {
		return err
	}
	return enc.Close()
}
