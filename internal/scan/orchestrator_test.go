package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/recongraph/internal/model"
)

type fakeResolver struct {
	addr  string
	err   error
	calls atomic.Int32
}

func (r *fakeResolver) Resolve(_ context.Context, _ string) (string, error) {
	r.calls.Add(1)
	return r.addr, r.err
}

type exposurePayload struct{ ports int }

func (p exposurePayload) OpenPortCount() int { return p.ports }
func (p exposurePayload) CVECount() int      { return 0 }
func (p exposurePayload) TagSet() []string   { return nil }

type countingSource struct {
	name  string
	key   model.SourceKey
	fn    func(ctx context.Context, key string) (any, error)
	calls atomic.Int32
	got   atomic.Value
}

func (s *countingSource) Name() string         { return s.name }
func (s *countingSource) Key() model.SourceKey { return s.key }
func (s *countingSource) Query(ctx context.Context, key string) (any, error) {
	s.calls.Add(1)
	s.got.Store(key)
	return s.fn(ctx, key)
}

func ok(payload any) func(context.Context, string) (any, error) {
	return func(context.Context, string) (any, error) { return payload, nil }
}

func fail(err error) func(context.Context, string) (any, error) {
	return func(context.Context, string) (any, error) { return nil, err }
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T, sources []Source, opts ...Option) *Orchestrator {
	t.Helper()

	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	o, err := New(sources, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects source timeout not shorter than deadline", func(t *testing.T) {
		t.Parallel()

		_, err := New(nil, WithDeadline(time.Second), WithSourceTimeout(time.Second))
		if !errors.Is(err, ErrSourceTimeoutTooLong) {
			t.Errorf("expected ErrSourceTimeoutTooLong, got %v", err)
		}
	})

	t.Run("keeps registration order", func(t *testing.T) {
		t.Parallel()

		o := newTestOrchestrator(t, []Source{
			&countingSource{name: "b"},
			&countingSource{name: "a"},
		}, WithResolver(&fakeResolver{}))

		names := o.SourceNames()
		if len(names) != 2 || names[0] != "b" || names[1] != "a" {
			t.Errorf("SourceNames() = %v", names)
		}
	})
}

func TestScanRejectsInvalidTargetWithoutNetwork(t *testing.T) {
	t.Parallel()

	src := &countingSource{name: "geo", key: model.KeyAddress, fn: ok(nil)}
	resolver := &fakeResolver{addr: "192.0.2.1"}
	o := newTestOrchestrator(t, []Source{src}, WithResolver(resolver))

	for _, target := range []string{"", "  ", "256.1.1.1", "not a host", "example", "1.2.3"} {
		report, err := o.Scan(context.Background(), target)
		if !errors.Is(err, model.ErrValidation) {
			t.Errorf("Scan(%q) error = %v, want validation error", target, err)
		}
		if report != nil {
			t.Errorf("Scan(%q) returned a report", target)
		}
	}

	if src.calls.Load() != 0 || resolver.calls.Load() != 0 {
		t.Errorf("invalid targets reached the network: source=%d resolver=%d",
			src.calls.Load(), resolver.calls.Load())
	}
}

func TestScanIPTarget(t *testing.T) {
	t.Parallel()

	geo := &countingSource{name: "geo", key: model.KeyAddress, fn: ok("geo-data")}
	rank := &countingSource{name: "rank", key: model.KeyDomain, fn: ok(1)}
	resolver := &fakeResolver{addr: "192.0.2.1"}
	o := newTestOrchestrator(t, []Source{geo, rank}, WithResolver(resolver))

	report, err := o.Scan(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if report.TargetType != "ip" || report.Address != "8.8.8.8" {
		t.Errorf("unexpected target info: %+v", report)
	}
	if resolver.calls.Load() != 0 {
		t.Error("IP targets must not be resolved")
	}
	if rank.calls.Load() != 0 {
		t.Error("domain-keyed source queried for an IP target")
	}
	if _, present := report.BySource["rank"]; present {
		t.Error("skipped source must not appear in the report")
	}
	if got := report.BySource["geo"]; !got.OK || got.Payload != "geo-data" {
		t.Errorf("geo outcome = %+v", got)
	}
	if report.Risk == nil {
		t.Fatal("risk assessment not attached")
	}
}

func TestScanDomainTarget(t *testing.T) {
	t.Parallel()

	geo := &countingSource{name: "geo", key: model.KeyAddress, fn: ok(nil)}
	rank := &countingSource{name: "rank", key: model.KeyDomain, fn: ok(42)}
	o := newTestOrchestrator(t, []Source{geo, rank}, WithResolver(&fakeResolver{addr: "192.0.2.7"}))

	report, err := o.Scan(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if report.Address != "192.0.2.7" {
		t.Errorf("Address = %q", report.Address)
	}
	if got, _ := geo.got.Load().(string); got != "192.0.2.7" {
		t.Errorf("address-keyed source got key %q", got)
	}
	if got, _ := rank.got.Load().(string); got != "example.com" {
		t.Errorf("domain-keyed source got key %q", got)
	}
	if len(report.BySource) != 2 {
		t.Errorf("expected 2 outcomes, got %d", len(report.BySource))
	}
}

func TestScanResolutionFailureIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resolver *fakeResolver
	}{
		{"resolver error", &fakeResolver{err: errors.New("SERVFAIL")}},
		{"typed resolver error", &fakeResolver{err: &model.ResolutionError{Domain: "example.com"}}},
		{"empty address", &fakeResolver{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &countingSource{name: "geo", key: model.KeyAddress, fn: ok(nil)}
			o := newTestOrchestrator(t, []Source{src}, WithResolver(tt.resolver))

			report, err := o.Scan(context.Background(), "example.com")
			if !errors.Is(err, model.ErrResolution) {
				t.Errorf("error = %v, want resolution error", err)
			}
			if report != nil {
				t.Error("resolution failure must not return a report")
			}
			if src.calls.Load() != 0 {
				t.Error("sources queried after resolution failed")
			}
		})
	}
}

func TestScanIsolatesSourceFailures(t *testing.T) {
	t.Parallel()

	transport := &model.TransportError{Op: "geo", Err: errors.New("connection refused")}
	sources := []Source{
		&countingSource{name: "geo", key: model.KeyAddress, fn: fail(transport)},
		&countingSource{name: "talos", key: model.KeyAddress, fn: ok(nil)},
		&countingSource{name: "tor", key: model.KeyAddress, fn: ok(nil)},
		&countingSource{name: "panics", key: model.KeyAddress, fn: func(context.Context, string) (any, error) {
			panic("boom")
		}},
		&countingSource{name: "rank", key: model.KeyDomain, fn: ok(10)},
	}
	o := newTestOrchestrator(t, sources, WithResolver(&fakeResolver{addr: "192.0.2.1"}))

	report, err := o.Scan(context.Background(), "example.org")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(report.BySource) != len(sources) {
		t.Fatalf("expected %d outcomes, got %d", len(sources), len(report.BySource))
	}

	geo := report.BySource["geo"]
	if geo.OK || !errors.Is(geo.Err, model.ErrTransport) {
		t.Errorf("geo outcome = %+v, want transport Failure", geo)
	}
	if report.BySource["panics"].OK {
		t.Error("panicking source recorded as Success")
	}
	for _, name := range []string{"talos", "tor", "rank"} {
		if !report.BySource[name].OK {
			t.Errorf("%s should be Success, got %+v", name, report.BySource[name])
		}
	}

	failed := report.FailedSources()
	if len(failed) != 2 || failed[0] != "geo" || failed[1] != "panics" {
		t.Errorf("FailedSources() = %v", failed)
	}
}

func TestScanPerSourceTimeout(t *testing.T) {
	t.Parallel()

	// The slow source ignores its context entirely.
	slow := &countingSource{name: "slow", key: model.KeyAddress, fn: func(context.Context, string) (any, error) {
		time.Sleep(2 * time.Second)
		return "late", nil
	}}
	fast := &countingSource{name: "fast", key: model.KeyAddress, fn: ok("on time")}

	o := newTestOrchestrator(t, []Source{slow, fast},
		WithDeadline(5*time.Second),
		WithSourceTimeout(100*time.Millisecond),
	)

	start := time.Now()
	report, err := o.Scan(context.Background(), "10.0.0.1")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("slow source stalled the scan for %v", elapsed)
	}
	if got := report.BySource["slow"]; got.OK || !errors.Is(got.Err, model.ErrTransport) {
		t.Errorf("slow outcome = %+v, want transport Failure", got)
	}
	if !report.BySource["fast"].OK {
		t.Error("fast source should succeed")
	}
}

func TestScanDeadlineReturnsPartialReport(t *testing.T) {
	t.Parallel()

	blocked := &countingSource{name: "blocked", key: model.KeyAddress, fn: func(ctx context.Context, _ string) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	fast := &countingSource{name: "fast", key: model.KeyAddress, fn: ok("done")}

	o := newTestOrchestrator(t, []Source{blocked, fast},
		WithDeadline(150*time.Millisecond),
		WithSourceTimeout(100*time.Millisecond),
	)
	// Shrink the deadline below the source timeout after construction so
	// the request-level deadline fires first.
	o.deadline = 50 * time.Millisecond

	report, err := o.Scan(context.Background(), "10.0.0.1")
	if !errors.Is(err, ErrScanTimeout) {
		t.Fatalf("error = %v, want ErrScanTimeout", err)
	}
	if report == nil || !report.TimedOut {
		t.Fatal("expected a timed-out partial report")
	}
	if !report.BySource["fast"].OK {
		t.Error("completed source lost from partial report")
	}
	if report.BySource["blocked"].OK {
		t.Error("blocked source should be a Failure")
	}
	if report.Risk == nil {
		t.Error("partial report should still be scored")
	}
}

func TestScanScoresMergedSources(t *testing.T) {
	t.Parallel()

	exposure := &countingSource{name: model.SourceExposure, key: model.KeyAddress, fn: ok(exposurePayload{ports: 8})}
	o := newTestOrchestrator(t, []Source{exposure})

	report, err := o.Scan(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if report.Risk.Score != 30 {
		t.Errorf("score = %d, want 30", report.Risk.Score)
	}
	if report.Risk.Level != model.RiskLow {
		t.Errorf("level = %v, want Low", report.Risk.Level)
	}
}

func TestSourceFunc(t *testing.T) {
	t.Parallel()

	src := SourceFunc{
		SourceName: "fn",
		SourceKey:  model.KeyDomain,
		Fn: func(_ context.Context, key string) (any, error) {
			return "got " + key, nil
		},
	}

	if src.Name() != "fn" || src.Key() != model.KeyDomain {
		t.Errorf("unexpected identity %q %v", src.Name(), src.Key())
	}
	payload, err := src.Query(context.Background(), "example.com")
	if err != nil || payload != "got example.com" {
		t.Errorf("Query() = %v, %v", payload, err)
	}
}
