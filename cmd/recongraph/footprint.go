package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nao1215/recongraph/internal/catalog"
	"github.com/nao1215/recongraph/internal/config"
	"github.com/nao1215/recongraph/internal/enumerator"
	"github.com/nao1215/recongraph/internal/footprint"
	"github.com/nao1215/recongraph/internal/model"
	"github.com/nao1215/recongraph/internal/report"
	"github.com/nao1215/recongraph/internal/source"
	"github.com/nao1215/recongraph/internal/tor"
	"github.com/spf13/cobra"
)

// NewFootprintCmd creates the footprint command.
func NewFootprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "footprint [identity]",
		Short: "Look up the public footprint of an email, phone number or username",
		Long: `Footprint classifies the identity once and dispatches on its kind:

  email     checked against XposedOrNot breach data
  phone     validated with numverify (needs an API key)
  username  searched across every site of the catalog at once

A site that fails or times out is reported as an error and never stops
the others. The enumeration ends when every site answered or the
deadline expired, whichever comes first.

The numverify key is read from NUMVERIFY_API_KEY or the config file.

Examples:
  # Search a username and list only the sites where it exists
  recongraph footprint --found-only alice

  # Check an email address for breaches
  recongraph footprint alice@example.com

  # Route username probes through Tor
  recongraph footprint --tor alice`,
		Args: cobra.ExactArgs(1),
		RunE: runFootprintCmd,
	}

	cmd.Flags().BoolP("found-only", "f", false,
		"List only the sites where the username exists")
	cmd.Flags().DurationP("deadline", "d", config.DefaultDeadline,
		"Deadline for one whole enumeration")
	cmd.Flags().DurationP("probe-timeout", "t", config.DefaultProbeTimeout,
		"Timeout for each site probe (must be shorter than --deadline)")
	cmd.Flags().IntP("concurrency", "p", config.DefaultConcurrency,
		"Maximum probes in flight (0 probes every site at once)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Bytes read from one probed page")
	cmd.Flags().String("catalog", "",
		"Site catalog YAML file replacing the built-in catalog")
	cmd.Flags().Bool("tor", false,
		"Route username probes through Tor (starts an embedded daemon)")
	cmd.Flags().StringP("external-tor", "e", "",
		"Use external Tor proxy at specified address (e.g., 127.0.0.1:9150); implies --tor")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	addReportFlags(cmd)

	return cmd
}

func runFootprintCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, stopTor, err := probeClient(ctx, cfg, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	defer stopTor()

	runner, err := newFootprintRunner(cfg, client, logger)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // report already flushed by the write

	return runFootprint(ctx, runner, args[0], cfg.FoundOnly, newReportWriter(cfg, out), logger)
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", cfg.CatalogPath, err)
	}
	return cat, nil
}

// newFootprintRunner wires the enumerator and the breach and phone
// clients. A nil client selects the direct HTTP client.
func newFootprintRunner(cfg *config.Config, client *http.Client, logger *slog.Logger) (*footprint.Runner, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("site catalog loaded", "sites", cat.Len(), "custom", cfg.CatalogPath != "")

	worker := enumerator.NewWorker(client, enumerator.NewClassifier(cat),
		enumerator.WithProbeTimeout(cfg.ProbeTimeout),
		enumerator.WithMaxBodySize(cfg.MaxBodySize),
	)
	enum := enumerator.New(cat, worker,
		enumerator.WithLogger(logger),
		enumerator.WithDeadline(cfg.Deadline),
		enumerator.WithConcurrency(cfg.Concurrency),
		enumerator.WithProgress(func(res model.ProbeResult, done, total int) {
			logger.Debug("probe settled", "site", res.Site, "status", res.Status.String(),
				"done", done, "total", total)
		}),
	)

	return footprint.New(enum,
		footprint.WithLogger(logger),
		footprint.WithBreachChecker(source.NewBreach()),
		footprint.WithPhoneValidator(source.NewPhone(source.WithAPIKey(cfg.NumverifyKey))),
	), nil
}

// runFootprint runs one lookup and writes its report. A timed-out
// enumeration still writes its partial report.
func runFootprint(ctx context.Context, runner *footprint.Runner, identity string, foundOnly bool, w report.Writer, logger *slog.Logger) error {
	rep, err := runner.Run(ctx, identity, foundOnly)
	if rep != nil {
		if _, werr := w.WriteFootprint(rep); werr != nil {
			return fmt.Errorf("failed to write report: %w", werr)
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, enumerator.ErrEnumerationTimeout):
		logger.Warn("enumeration deadline exceeded, report is partial")
		return nil
	default:
		return fmt.Errorf("footprint failed: %w", err)
	}
}

// probeClient returns the HTTP client for username probes and a function
// releasing it. Without Tor the client is nil so the worker uses its own.
func probeClient(ctx context.Context, cfg *config.Config, status io.Writer, logger *slog.Logger) (*http.Client, func(), error) {
	if !cfg.UseTor {
		return nil, func() {}, nil
	}

	if cfg.ExternalTorAddress != "" {
		client, err := tor.NewClient(cfg.ExternalTorAddress, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if s := client.CheckConnection(ctx); s != tor.ProxyStatusOK {
			return nil, nil, fmt.Errorf("tor proxy check failed: %w (make sure Tor is running at %s)",
				s.Err(), cfg.ExternalTorAddress)
		}
		logger.Info("Tor proxy connection verified", "address", cfg.ExternalTorAddress)
		return client.NewHTTPClient(), func() {}, nil
	}

	client, embedded, err := startEmbeddedTor(ctx, cfg, status, logger)
	if err != nil {
		return nil, nil, err
	}
	return client.NewHTTPClient(), func() {
		logger.Info("stopping embedded Tor daemon")
		if err := embedded.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}, nil
}

func startEmbeddedTor(ctx context.Context, cfg *config.Config, status io.Writer, logger *slog.Logger) (*tor.Client, *tor.EmbeddedTor, error) {
	fmt.Fprintln(status, "Starting embedded Tor daemon...")
	fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	logger.Info("embedded Tor daemon started",
		"socksAddr", embedded.SocksAddr(),
		"controlAddr", embedded.ControlAddr(),
	)

	client, err := embedded.NewClient(0)
	if err != nil {
		_ = embedded.Stop() //nolint:errcheck // best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if s := client.CheckConnection(ctx); s != tor.ProxyStatusOK {
		_ = embedded.Stop() //nolint:errcheck // best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", s.Err())
	}

	fmt.Fprintf(status, "Embedded Tor daemon started, SOCKS proxy at %s\n\n", embedded.SocksAddr())
	return client, embedded, nil
}
