package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/recongraph/internal/config"
	"github.com/nao1215/recongraph/internal/log"
	"github.com/nao1215/recongraph/internal/report"
	"github.com/spf13/cobra"
)

// addReportFlags registers the output flags shared by scan and footprint.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// loadConfig layers defaults, the config file, the environment and the
// flags the user set explicitly, in that order, then validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ConfigFilePath = getConfigFlag(cmd)
	cfg.Verbose = getVerboseFlag(cmd)

	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := cfg.ApplyFile(file); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.ApplyEnv(os.Getenv)

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// applyFlags copies every flag the command defines and the user changed.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	durations := map[string]*time.Duration{
		"deadline":       &cfg.Deadline,
		"probe-timeout":  &cfg.ProbeTimeout,
		"source-timeout": &cfg.SourceTimeout,
		"tor-timeout":    &cfg.TorStartupTimeout,
		"ttl":            &cfg.BlocklistTTL,
	}
	for name, dst := range durations {
		if !changed(cmd, name) {
			continue
		}
		if *dst, err = cmd.Flags().GetDuration(name); err != nil {
			return err
		}
	}

	strs := map[string]*string{
		"catalog":      &cfg.CatalogPath,
		"dns-server":   &cfg.DNSServer,
		"cache-dir":    &cfg.CacheDir,
		"external-tor": &cfg.ExternalTorAddress,
		"output":       &cfg.ReportFile,
	}
	for name, dst := range strs {
		if !changed(cmd, name) {
			continue
		}
		if *dst, err = cmd.Flags().GetString(name); err != nil {
			return err
		}
	}

	bools := map[string]*bool{
		"found-only": &cfg.FoundOnly,
		"json":       &cfg.JSONReport,
		"markdown":   &cfg.MarkdownReport,
		"tor":        &cfg.UseTor,
	}
	for name, dst := range bools {
		if !changed(cmd, name) {
			continue
		}
		if *dst, err = cmd.Flags().GetBool(name); err != nil {
			return err
		}
	}

	if changed(cmd, "concurrency") {
		if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
			return err
		}
	}
	if changed(cmd, "max-body-size") {
		if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
			return err
		}
	}
	if changed(cmd, "disable") {
		disabled, err := cmd.Flags().GetStringSlice("disable")
		if err != nil {
			return err
		}
		off := make(map[string]bool, len(disabled))
		for _, name := range disabled {
			off[name] = false
		}
		if err := cfg.ApplyFile(&config.File{Sources: off}); err != nil {
			return err
		}
	}

	if cfg.ExternalTorAddress != "" {
		cfg.UseTor = true
	}
	return nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// setupLogger logs as JSON alongside a JSON report so both streams stay
// machine-readable.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.JSONReport {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openOutput returns the report destination: the configured report file,
// or stdout. The returned close function must be called when done.
func openOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports can name the people and hosts looked up; keep them owner-only.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter picks the writer for the configured format.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		opts := []report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}
		if cfg.ReportFile != "" {
			opts = append(opts, report.WithColor(false))
		}
		return report.NewSimpleWriter(w, opts...)
	}
}
