package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/recongraph/internal/cache"
	"github.com/nao1215/recongraph/internal/config"
	"github.com/nao1215/recongraph/internal/model"
	"github.com/nao1215/recongraph/internal/source"
	"github.com/spf13/cobra"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download the talos and tor blocklists into the local cache",
		Long: `Update downloads the Talos IP block list and the Tor exit address list
and stores them in the blocklist cache, replacing any cached copy.

The scan command refreshes a list on its own once it is older than the
configured TTL (24h by default); update forces a refresh now.

Examples:
  # Refresh both lists
  recongraph update

  # Show what is cached without downloading
  recongraph update --list

  # Drop every cached list; the next scan downloads them again
  recongraph update --purge`,
		Args: cobra.NoArgs,
		RunE: runUpdateCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"Only list the cached blocklists")
	cmd.Flags().Bool("purge", false,
		"Remove every cached blocklist instead of downloading")
	cmd.Flags().String("cache-dir", "",
		"Directory of the blocklist cache (default: XDG cache directory)")
	cmd.Flags().Duration("ttl", config.DefaultBlocklistTTL,
		"Age after which a cached list is reported as stale")

	return cmd
}

func runUpdateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	listOnly, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	purge, err := cmd.Flags().GetBool("purge")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	store, err := cache.Open(cfg.CacheDir, cache.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open blocklist cache: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	var refreshErr error
	switch {
	case purge:
		refreshErr = purgeBlocklists(ctx, store, out)
	case !listOnly:
		refreshErr = refreshBlocklists(ctx, blocklists(cfg, store), out, logger)
	}
	if err := listBlocklists(ctx, store, cfg.BlocklistTTL, time.Now(), out); err != nil {
		return errors.Join(refreshErr, err)
	}
	return refreshErr
}

// refresher downloads one list. *source.Blocklist implements it.
type refresher interface {
	Name() string
	Refresh(ctx context.Context) (*cache.Blocklist, error)
}

// blocklists returns the enabled blocklist sources backed by store.
func blocklists(cfg *config.Config, store *cache.Store) []refresher {
	var lists []refresher
	if cfg.SourceEnabled(model.SourceBlacklist) {
		lists = append(lists, source.NewTalos(store, cfg.BlocklistTTL))
	}
	if cfg.SourceEnabled(model.SourceTorExit) {
		lists = append(lists, source.NewTorExit(store, cfg.BlocklistTTL))
	}
	return lists
}

// refreshBlocklists refreshes every list, continuing past failures, and
// returns the joined errors.
func refreshBlocklists(ctx context.Context, lists []refresher, out io.Writer, logger *slog.Logger) error {
	var errs []error
	for _, l := range lists {
		list, err := l.Refresh(ctx)
		if err != nil {
			logger.Warn("blocklist refresh failed", "source", l.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
			if list == nil {
				continue
			}
		}
		fmt.Fprintf(out, "Updated %s: %d entries (digest %s)\n", l.Name(), len(list.Entries), shortDigest(list.Digest))
	}
	return errors.Join(errs...)
}

// blocklistStore is the part of *cache.Store that purgeBlocklists needs.
type blocklistStore interface {
	List(ctx context.Context) ([]cache.Summary, error)
	Delete(ctx context.Context, name string) error
}

// purgeBlocklists deletes every cached list.
func purgeBlocklists(ctx context.Context, store blocklistStore, out io.Writer) error {
	summaries, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list blocklists: %w", err)
	}
	var errs []error
	for _, s := range summaries {
		if err := store.Delete(ctx, s.Name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		fmt.Fprintf(out, "Removed %s (%d entries)\n", s.Name, s.Count)
	}
	return errors.Join(errs...)
}

func listBlocklists(ctx context.Context, store *cache.Store, ttl time.Duration, now time.Time, out io.Writer) error {
	summaries, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list blocklists: %w", err)
	}

	fmt.Fprintf(out, "\nBlocklist cache: %s\n", store.Path())
	if len(summaries) == 0 {
		fmt.Fprintln(out, "  (empty)")
		return nil
	}
	for _, s := range summaries {
		state := "fresh"
		if now.Sub(s.FetchedAt) > ttl {
			state = "stale"
		}
		fmt.Fprintf(out, "  %-8s %7d entries  fetched %s  %-5s  %s\n",
			s.Name, s.Count, s.FetchedAt.Local().Format(dateTimeLayout), state, shortDigest(s.Digest))
	}
	return nil
}

const dateTimeLayout = "2006-01-02 15:04:05"

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
