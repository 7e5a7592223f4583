package enumerator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/recongraph/internal/catalog"
	"github.com/nao1215/recongraph/internal/model"
)

// fakeProber returns a deterministic outcome per site after a random delay,
// so completion order differs from catalog order.
type fakeProber struct {
	outcome func(site string) model.ProbeResult
	delay   time.Duration
	calls   atomic.Int32
	mu      sync.Mutex
	agents  map[string]struct{}
}

func (p *fakeProber) Probe(ctx context.Context, entry catalog.Entry, identity string, header http.Header) model.ProbeResult {
	p.calls.Add(1)

	p.mu.Lock()
	if p.agents == nil {
		p.agents = make(map[string]struct{})
	}
	p.agents[header.Get("User-Agent")] = struct{}{}
	p.mu.Unlock()

	if p.delay > 0 {
		jitter := time.Duration(rand.Int64N(int64(p.delay))) //nolint:gosec // Test jitter
		select {
		case <-ctx.Done():
			return model.ProbeFailed(entry.Name, entry.URL(identity), ctx.Err().Error())
		case <-time.After(jitter):
		}
	}
	return p.outcome(entry.Name)
}

// numberedCatalog builds a catalog with n sites named site-0..site-(n-1).
func numberedCatalog(n int) *catalog.Catalog {
	c := &catalog.Catalog{UserAgents: []string{"ua-1", "ua-2", "ua-3"}}
	for i := range n {
		name := fmt.Sprintf("site-%d", i)
		c.Entries = append(c.Entries, catalog.Entry{Name: name, URLTemplate: "https://" + name + ".example/{}"})
	}
	return c
}

// everyThird marks every third site Found and every seventh site Error.
func everyThird(site string) model.ProbeResult {
	var i int
	_, _ = fmt.Sscanf(site, "site-%d", &i)
	switch {
	case i%3 == 0:
		return model.Found(site, "https://"+site+".example/alice")
	case i%7 == 0:
		return model.ProbeFailed(site, "", "connection reset")
	default:
		return model.NotFound(site, "")
	}
}

func TestEnumerate(t *testing.T) {
	t.Parallel()

	const n = 200
	wantFound := 0
	wantErrors := 0
	for i := range n {
		switch {
		case i%3 == 0:
			wantFound++
		case i%7 == 0:
			wantErrors++
		}
	}

	t.Run("one distinct outcome per catalog entry", func(t *testing.T) {
		t.Parallel()

		prober := &fakeProber{outcome: everyThird, delay: 5 * time.Millisecond}
		e := New(numberedCatalog(n), prober)

		report, err := e.Enumerate(context.Background(), "alice", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(report.Results) != n {
			t.Fatalf("expected %d results, got %d", n, len(report.Results))
		}
		seen := make(map[string]bool, n)
		for _, r := range report.Results {
			if seen[r.Site] {
				t.Errorf("duplicate result for %s", r.Site)
			}
			seen[r.Site] = true
		}
		if report.FoundCount != wantFound {
			t.Errorf("FoundCount = %d, want %d", report.FoundCount, wantFound)
		}
		if report.ErrorCount != wantErrors {
			t.Errorf("ErrorCount = %d, want %d", report.ErrorCount, wantErrors)
		}
		if report.Probed != n {
			t.Errorf("Probed = %d, want %d", report.Probed, n)
		}
		if int(prober.calls.Load()) != n {
			t.Errorf("prober called %d times, want %d", prober.calls.Load(), n)
		}
	})

	t.Run("foundOnly filters results but still probes and counts all", func(t *testing.T) {
		t.Parallel()

		prober := &fakeProber{outcome: everyThird, delay: 5 * time.Millisecond}
		e := New(numberedCatalog(n), prober)

		report, err := e.Enumerate(context.Background(), "alice", true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(report.Results) != wantFound {
			t.Errorf("expected %d found results, got %d", wantFound, len(report.Results))
		}
		for _, r := range report.Results {
			if r.Status != model.ProbeFound {
				t.Errorf("unexpected status %v for %s", r.Status, r.Site)
			}
		}
		if report.FoundCount != wantFound {
			t.Errorf("FoundCount = %d, want %d", report.FoundCount, wantFound)
		}
		if int(prober.calls.Load()) != n {
			t.Errorf("prober called %d times, want %d", prober.calls.Load(), n)
		}
		if !report.FoundOnly {
			t.Error("expected FoundOnly to be recorded")
		}
	})

	t.Run("one user agent per enumeration", func(t *testing.T) {
		t.Parallel()

		prober := &fakeProber{outcome: everyThird}
		e := New(numberedCatalog(30), prober)

		if _, err := e.Enumerate(context.Background(), "alice", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(prober.agents) != 1 {
			t.Errorf("expected a single user agent, got %d", len(prober.agents))
		}
	})
}

func TestEnumerateRunsProbesConcurrently(t *testing.T) {
	t.Parallel()

	const n = 50
	const delay = 100 * time.Millisecond

	prober := &fakeProber{outcome: func(site string) model.ProbeResult {
		time.Sleep(delay)
		return model.NotFound(site, "")
	}}
	e := New(numberedCatalog(n), prober)

	start := time.Now()
	if _, err := e.Enumerate(context.Background(), "alice", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	// Sequential execution would take n*delay = 5s.
	if elapsed > 2*time.Second {
		t.Errorf("enumeration took %v; probes do not appear to run concurrently", elapsed)
	}
}

func TestEnumerateConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var current, peak atomic.Int32
	prober := &fakeProber{outcome: func(site string) model.ProbeResult {
		c := current.Add(1)
		for {
			p := peak.Load()
			if c <= p || peak.CompareAndSwap(p, c) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
		return model.NotFound(site, "")
	}}

	e := New(numberedCatalog(40), prober, WithConcurrency(4))
	report, err := e.Enumerate(context.Background(), "alice", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Results) != 40 {
		t.Errorf("expected 40 results, got %d", len(report.Results))
	}
	if peak.Load() > 4 {
		t.Errorf("peak concurrency %d exceeds limit 4", peak.Load())
	}
}

func TestEnumerateDeadline(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{outcome: func(site string) model.ProbeResult {
		if site == "site-0" {
			return model.Found(site, "https://site-0.example/alice")
		}
		return model.NotFound(site, "")
	}}
	slow := &slowProber{fast: prober, slowSite: "site-1"}

	e := New(numberedCatalog(5), slow, WithDeadline(100*time.Millisecond))
	report, err := e.Enumerate(context.Background(), "alice", false)

	if !errors.Is(err, ErrEnumerationTimeout) {
		t.Fatalf("expected ErrEnumerationTimeout, got %v", err)
	}
	if report == nil {
		t.Fatal("expected partial report")
	}
	if !report.TimedOut {
		t.Error("expected TimedOut to be set")
	}
	if len(report.Results) != 5 {
		t.Errorf("expected 5 results, got %d", len(report.Results))
	}
	if report.FoundCount != 1 {
		t.Errorf("FoundCount = %d, want 1", report.FoundCount)
	}
	if report.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1 (the slow site)", report.ErrorCount)
	}
}

// slowProber blocks on one site until the context ends.
type slowProber struct {
	fast     Prober
	slowSite string
}

func (p *slowProber) Probe(ctx context.Context, entry catalog.Entry, identity string, header http.Header) model.ProbeResult {
	if entry.Name == p.slowSite {
		<-ctx.Done()
		return model.ProbeFailed(entry.Name, "", ctx.Err().Error())
	}
	return p.fast.Probe(ctx, entry, identity, header)
}

func TestEnumerateRejectsEmptyIdentity(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{outcome: everyThird}
	e := New(numberedCatalog(3), prober)

	_, err := e.Enumerate(context.Background(), "   ", false)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if prober.calls.Load() != 0 {
		t.Error("no probe must run for an empty identity")
	}
}

func TestEnumerateProgress(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var calls int
	var maxDone int

	e := New(numberedCatalog(25), &fakeProber{outcome: everyThird}, WithProgress(func(_ model.ProbeResult, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if done > maxDone {
			maxDone = done
		}
		if total != 25 {
			t.Errorf("total = %d, want 25", total)
		}
	}))

	if _, err := e.Enumerate(context.Background(), "alice", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 25 || maxDone != 25 {
		t.Errorf("progress calls = %d, max done = %d; want 25/25", calls, maxDone)
	}
}
