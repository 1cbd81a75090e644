package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jpalmerr/sitecheck"
	"github.com/jpalmerr/sitecheck/config"
)

// addInputFlags registers the flags shared by commands that poll.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to config file (settings may also come from SITECHECK_* variables)")
	cmd.Flags().StringP("file", "f", "", `file with one URL per line ("-" for stdin)`)
}

// loadSettings loads the config named by the --config flag.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// readURLText returns the raw URL list: the --file contents, else the urls
// from the config, else stdin.
func readURLText(cmd *cobra.Command, cfg *config.Settings) (string, error) {
	path, _ := cmd.Flags().GetString("file")

	switch {
	case path == "-" || (path == "" && len(cfg.URLs) == 0):
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read urls from stdin: %w", err)
		}
		return string(data), nil
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read url file: %w", err)
		}
		return string(data), nil
	default:
		return strings.Join(cfg.URLs, "\n"), nil
	}
}

// parseURLText validates text line by line and normalises the URLs.
// Malformed lines are reported by their 1-based line number.
func parseURLText(text string) ([]sitecheck.URLEntry, error) {
	v := sitecheck.ValidateText(text)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return sitecheck.ParseURLs(v.URLs())
}

// engineOptions maps settings onto engine options.
func engineOptions(cfg *config.Settings, logger *zap.Logger) []sitecheck.Option {
	opts := []sitecheck.Option{
		sitecheck.WithLogger(logger),
		sitecheck.WithUserAgent(cfg.UserAgent),
		sitecheck.WithFollowRedirects(cfg.FollowRedirects),
	}
	if cfg.MaxConcurrency > 0 {
		opts = append(opts, sitecheck.WithMaxConcurrency(cfg.MaxConcurrency))
	}
	if cfg.RequestsPerSecond > 0 {
		opts = append(opts, sitecheck.WithRequestRate(cfg.RequestsPerSecond, cfg.RequestBurst))
	}
	return opts
}
