package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/recongraph/internal/model"
	"github.com/nao1215/recongraph/internal/risk"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDeadline bounds a whole scan, resolution included.
	DefaultDeadline = 60 * time.Second

	// DefaultSourceTimeout bounds one source query. It is shorter than
	// DefaultDeadline so that one slow source settles as a Failure while
	// the request still has time left.
	DefaultSourceTimeout = 20 * time.Second
)

var (
	// ErrScanTimeout is returned, together with the report, when the scan
	// deadline expires before every source settles.
	ErrScanTimeout = errors.New("scan deadline exceeded")

	// ErrSourceTimeoutTooLong is returned by New when the configured
	// source timeout does not fit inside the request deadline.
	ErrSourceTimeoutTooLong = errors.New("source timeout must be shorter than the scan deadline")

	// errNoResolver is returned for domain targets when no Resolver is set.
	errNoResolver = errors.New("no resolver configured")
)

// Orchestrator runs scans against a fixed set of sources.
// It is safe for concurrent use; each Scan owns its own report.
type Orchestrator struct {
	sources       []Source
	resolver      Resolver
	logger        *slog.Logger
	deadline      time.Duration
	sourceTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithDeadline sets the request-level deadline.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.deadline = d
		}
	}
}

// WithSourceTimeout sets the per-source timeout.
func WithSourceTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.sourceTimeout = d
		}
	}
}

// WithResolver sets the resolver used for domain targets.
func WithResolver(r Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// New creates an Orchestrator over sources.
// Without WithResolver, domains are resolved by a DNSResolver using the
// system nameserver.
func New(sources []Source, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		sources:       sources,
		deadline:      DefaultDeadline,
		sourceTimeout: DefaultSourceTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sourceTimeout >= o.deadline {
		return nil, fmt.Errorf("%w: %s >= %s", ErrSourceTimeoutTooLong, o.sourceTimeout, o.deadline)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.resolver == nil {
		o.resolver = NewDNSResolver("", 0)
	}
	return o, nil
}

// SourceNames returns the registered source names in registration order.
func (o *Orchestrator) SourceNames() []string {
	names := make([]string, len(o.sources))
	for i, s := range o.sources {
		names[i] = s.Name()
	}
	return names
}

// Scan validates target, resolves it when it is a domain, queries every
// applicable source concurrently and returns the merged, scored report.
//
// Invalid targets fail with a *model.ValidationError before any network
// call. An unresolvable domain fails the whole request with a
// *model.ResolutionError. Any other fault is confined to the source that
// raised it. If the deadline expires first, the report is still returned
// with TimedOut set, alongside ErrScanTimeout.
func (o *Orchestrator) Scan(ctx context.Context, target string) (*model.ScanReport, error) {
	t, err := model.ParseTarget(target)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	report := model.NewScanReport(t)

	address, err := o.address(ctx, t)
	if err != nil {
		o.logger.Warn("resolution failed", "target", t.Raw, "error", err)
		return nil, err
	}
	report.Address = address

	o.logger.Info("starting scan",
		"target", t.Raw,
		"type", t.Kind.String(),
		"address", address,
	)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, src := range o.sources {
		key, ok := queryKey(src, t, address)
		if !ok {
			continue
		}
		g.Go(func() error {
			res := o.query(ctx, src, key)
			if !res.OK {
				o.logger.Warn("source failed", "source", src.Name(), "error", res.Reason)
			}
			mu.Lock()
			report.BySource[src.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // Branch faults are recorded, never returned

	assessment := risk.Score(report.BySource)
	report.Risk = &assessment

	o.logger.Info("scan complete",
		"target", t.Raw,
		"sources", len(report.BySource),
		"failed", len(report.FailedSources()),
		"score", assessment.Score,
	)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		report.TimedOut = true
		return report, ErrScanTimeout
	}
	return report, ctx.Err()
}

// address returns the IPv4 address address-keyed sources are queried with.
func (o *Orchestrator) address(ctx context.Context, t model.Target) (string, error) {
	if t.IsIP() {
		return t.Raw, nil
	}
	if o.resolver == nil {
		return "", &model.ResolutionError{Domain: t.Raw, Err: errNoResolver}
	}
	addr, err := o.resolver.Resolve(ctx, t.Raw)
	if err != nil {
		var re *model.ResolutionError
		if errors.As(err, &re) {
			return "", err
		}
		return "", &model.ResolutionError{Domain: t.Raw, Err: err}
	}
	if addr == "" {
		return "", &model.ResolutionError{Domain: t.Raw, Err: errNoAddress}
	}
	return addr, nil
}

// queryKey picks the key a source is queried with. Domain-keyed sources are
// skipped for IP targets.
func queryKey(src Source, t model.Target, address string) (string, bool) {
	switch src.Key() {
	case model.KeyAddress:
		return address, true
	case model.KeyDomain:
		return t.Raw, t.IsDomain()
	default:
		return "", false
	}
}

type outcome struct {
	payload any
	err     error
}

// query runs one source under its own timeout and always settles.
// The source call runs in its own goroutine so a source that ignores its
// context still settles as a Failure when the timeout fires.
//
// Design decision: We race the call against ctx.Done rather than trusting
// each source to honor cancellation because:
//  1. Third-party clients such as whois do not all take a context
//  2. One stuck source must never hold back the aggregate report
//  3. The abandoned goroutine writes to a buffered channel and exits later
func (o *Orchestrator) query(ctx context.Context, src Source, key string) model.SourceQueryResult {
	name := src.Name()

	ctx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%s: source panicked: %v", name, r)}
			}
		}()
		payload, err := src.Query(ctx, key)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return model.Failure(name, out.err)
		}
		return model.Success(name, out.payload)
	case <-ctx.Done():
		return model.Failure(name, &model.TransportError{Op: name, Err: ctx.Err()})
	}
}
