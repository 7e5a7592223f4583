package enumerator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nao1215/recongraph/internal/catalog"
	"github.com/nao1215/recongraph/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultDeadline bounds a whole enumeration. It must stay longer than the
// per-probe timeout so that a single slow site cannot consume it.
const DefaultDeadline = 60 * time.Second

// ErrEnumerationTimeout is returned, together with the partial report, when
// the enumeration deadline expires before every probe settles.
var ErrEnumerationTimeout = errors.New("enumeration deadline exceeded")

// ErrEmptyIdentity is returned for blank identities.
var ErrEmptyIdentity = errors.New("identity must not be empty")

// ProgressFunc is called once per settled probe with the number of probes
// settled so far. It is called from probe goroutines and must be safe for
// concurrent use.
type ProgressFunc func(result model.ProbeResult, done, total int)

// Enumerator fans a Prober out across the catalog.
type Enumerator struct {
	catalog     *catalog.Catalog
	prober      Prober
	logger      *slog.Logger
	deadline    time.Duration
	concurrency int
	progress    ProgressFunc
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enumerator) {
		e.logger = logger
	}
}

// WithDeadline sets the request-level deadline for one enumeration.
func WithDeadline(d time.Duration) Option {
	return func(e *Enumerator) {
		if d > 0 {
			e.deadline = d
		}
	}
}

// WithConcurrency caps the number of probes in flight.
// Zero, the default, runs one goroutine per catalog entry.
func WithConcurrency(n int) Option {
	return func(e *Enumerator) {
		if n >= 0 {
			e.concurrency = n
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Enumerator) {
		e.progress = fn
	}
}

// New creates an Enumerator over cat using prober.
func New(cat *catalog.Catalog, prober Prober, opts ...Option) *Enumerator {
	e := &Enumerator{
		catalog:  cat,
		prober:   prober,
		deadline: DefaultDeadline,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Enumerate probes every catalog entry for identity and waits for all of
// them to settle.
//
// Exactly one outcome is recorded per catalog entry. When foundOnly is set
// the returned Results contain only ProbeFound entries, but every entry is
// still probed and FoundCount reflects all matches.
//
// If the deadline expires first, the report is still returned with the
// unsettled probes marked ProbeError, TimedOut set, and ErrEnumerationTimeout.
func (e *Enumerator) Enumerate(ctx context.Context, identity string, foundOnly bool) (*model.EnumerationReport, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, &model.ValidationError{Input: identity, Reason: ErrEmptyIdentity.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	entries := e.catalog.Entries
	total := e.catalog.Len()
	start := time.Now()

	// One header set per enumeration; probes clone it before use.
	header := make(http.Header)
	header.Set("User-Agent", e.catalog.UserAgent())
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "en-US,en;q=0.5")

	e.logger.Info("starting enumeration",
		"identity", identity,
		"sites", total,
		"concurrency", e.concurrency,
	)

	// Each probe owns results[i]; no slot is written by two goroutines.
	results := make([]model.ProbeResult, total)
	var done atomic.Int64

	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}

	for i, entry := range entries {
		g.Go(func() error {
			res := e.prober.Probe(ctx, entry, identity, header)
			res.Site = entry.Name
			results[i] = res

			n := done.Add(1)
			if res.Status == model.ProbeError {
				e.logger.Debug("probe failed", "site", entry.Name, "error", res.Reason)
			}
			if e.progress != nil {
				e.progress(res, int(n), total)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // Probes never return errors

	report := &model.EnumerationReport{
		Identity:  identity,
		Probed:    total,
		FoundOnly: foundOnly,
		StartedAt: start,
		Elapsed:   time.Since(start),
		Results:   make([]model.ProbeResult, 0, total),
	}
	for _, res := range results {
		switch res.Status {
		case model.ProbeFound:
			report.FoundCount++
		case model.ProbeError:
			report.ErrorCount++
		}
		if foundOnly && res.Status != model.ProbeFound {
			continue
		}
		report.Results = append(report.Results, res)
	}

	e.logger.Info("enumeration complete",
		"identity", identity,
		"found", report.FoundCount,
		"errors", report.ErrorCount,
		"elapsed", report.Elapsed,
	)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		report.TimedOut = true
		return report, ErrEnumerationTimeout
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
