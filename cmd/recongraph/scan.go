package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/recongraph/internal/cache"
	"github.com/nao1215/recongraph/internal/config"
	"github.com/nao1215/recongraph/internal/model"
	"github.com/nao1215/recongraph/internal/report"
	"github.com/nao1215/recongraph/internal/scan"
	"github.com/nao1215/recongraph/internal/source"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [target...]",
		Short: "Scan an IPv4 address or domain and score its risk",
		Long: `Scan classifies each target as an IPv4 address or a domain, resolves
domains to an address, and queries every enabled source at once:

  ipapi       geolocation and ISP                 (address)
  talos       Talos IP block list membership      (address)
  tor         Tor exit relay membership           (address)
  internetdb  open ports, tags and CVEs           (address)
  ripe        RIPE registry inetnum record        (address)
  tranco      Tranco popularity rank              (domain)
  threatfox   ThreatFox indicators of compromise  (domain)
  whois       domain registration                 (domain)

A failing source is reported as a failure and never stops the others.
The merged results are scored from 0 to 100 and rated Low, Medium or High.

Examples:
  # Scan an address
  recongraph scan 8.8.8.8

  # Scan a domain and write a Markdown report
  recongraph scan --markdown -o report.md example.com

  # Skip slow sources
  recongraph scan --disable whois,ripe example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().DurationP("deadline", "d", config.DefaultDeadline,
		"Deadline for one whole scan")
	cmd.Flags().DurationP("source-timeout", "t", config.DefaultSourceTimeout,
		"Timeout for each source query (must be shorter than --deadline)")
	cmd.Flags().String("dns-server", "",
		"Nameserver for domain resolution as host:port (default: system resolver)")
	cmd.Flags().String("cache-dir", "",
		"Directory of the blocklist cache (default: XDG cache directory)")
	cmd.Flags().StringSlice("disable", nil,
		"Sources to skip, comma separated")
	addReportFlags(cmd)

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	store, closeStore := openBlocklistStore(cfg, logger)
	defer closeStore()

	orch, err := newOrchestrator(cfg, buildSources(cfg, store), logger)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // report already flushed by each write

	return runScan(ctx, orch, args, newReportWriter(cfg, out), logger)
}

// openBlocklistStore opens the blocklist cache. Without it the blocklist
// sources still work, keeping downloaded lists in memory only.
func openBlocklistStore(cfg *config.Config, logger *slog.Logger) (source.BlocklistStore, func()) {
	store, err := cache.Open(cfg.CacheDir, cache.DefaultOptions())
	if err != nil {
		logger.Warn("blocklist cache unavailable, lists will not be persisted",
			"dir", cfg.CacheDir, "error", err)
		return nil, func() {}
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close blocklist cache", "error", err)
		}
	}
}

// sourceHTTPClient returns the client shared by the HTTP sources.
//
// Design decision: We set the client timeout equal to the configured
// source timeout so the orchestrator's per-source context is what ends a
// slow query. A shorter client default would cut queries off before the
// timeout the user asked for.
func sourceHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.SourceTimeout}
}

// buildSources instantiates every source enabled in cfg, in the order of
// config.Sources.
func buildSources(cfg *config.Config, store source.BlocklistStore) []scan.Source {
	withClient := source.WithHTTPClient(sourceHTTPClient(cfg))

	var sources []scan.Source
	for _, name := range config.Sources {
		if !cfg.SourceEnabled(name) {
			continue
		}
		switch name {
		case model.SourceGeolocation:
			sources = append(sources, source.NewGeolocation(withClient))
		case model.SourceBlacklist:
			sources = append(sources, source.NewTalos(store, cfg.BlocklistTTL, withClient))
		case model.SourceTorExit:
			sources = append(sources, source.NewTorExit(store, cfg.BlocklistTTL, withClient))
		case model.SourceExposure:
			sources = append(sources, source.NewExposure(withClient))
		case model.SourceRegistry:
			sources = append(sources, source.NewRegistry(withClient))
		case model.SourceRank:
			sources = append(sources, source.NewRank(withClient))
		case model.SourceIOC:
			sources = append(sources, source.NewIOC(withClient, source.WithAPIKey(cfg.ThreatFoxKey)))
		case model.SourceWhois:
			sources = append(sources, source.NewWhois(nil, cfg.SourceTimeout))
		}
	}
	return sources
}

func newOrchestrator(cfg *config.Config, sources []scan.Source, logger *slog.Logger) (*scan.Orchestrator, error) {
	resolver := scan.NewDNSResolver(cfg.DNSServer, 0)
	logger.Debug("domain resolver configured", "server", resolver.Server())

	return scan.New(sources,
		scan.WithLogger(logger),
		scan.WithDeadline(cfg.Deadline),
		scan.WithSourceTimeout(cfg.SourceTimeout),
		scan.WithResolver(resolver),
	)
}

// scanner is the part of *scan.Orchestrator that runScan needs.
type scanner interface {
	Scan(ctx context.Context, target string) (*model.ScanReport, error)
}

// runScan scans the targets one after another and writes one report per
// target. A timed-out scan still writes its partial report; any other
// error stops the run.
func runScan(ctx context.Context, s scanner, targets []string, w report.Writer, logger *slog.Logger) error {
	if len(targets) == 0 {
		return errors.New("no targets provided (specify one or more IPv4 addresses or domains)")
	}

	for _, target := range targets {
		logger.Info("starting scan", "target", target)

		rep, err := s.Scan(ctx, target)
		if rep != nil {
			if _, werr := w.WriteScan(rep); werr != nil {
				return fmt.Errorf("failed to write report: %w", werr)
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, scan.ErrScanTimeout):
			logger.Warn("scan deadline exceeded, report is partial", "target", target)
		default:
			return fmt.Errorf("scan of %s failed: %w", target, err)
		}
	}
	return nil
}
