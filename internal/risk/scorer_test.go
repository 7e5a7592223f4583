package risk

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/recongraph/internal/model"
)

type exposure struct {
	ports, cves int
	tags        []string
}

func (e exposure) OpenPortCount() int { return e.ports }
func (e exposure) CVECount() int      { return e.cves }
func (e exposure) TagSet() []string   { return e.tags }

type blacklist bool

func (b blacklist) Blacklisted() bool { return bool(b) }

type ioc bool

func (i ioc) MalwareAssociated() bool { return bool(i) }

func sources(exp *exposure, bl, mw bool) map[string]model.SourceQueryResult {
	m := map[string]model.SourceQueryResult{
		model.SourceBlacklist: model.Success(model.SourceBlacklist, blacklist(bl)),
		model.SourceIOC:       model.Success(model.SourceIOC, ioc(mw)),
	}
	if exp != nil {
		m[model.SourceExposure] = model.Success(model.SourceExposure, *exp)
	}
	return m
}

func TestScorePortRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ports int
		want  int
	}{
		{0, 0},
		{1, 5},
		{3, 15},
		{6, 30},
		{8, 30},
		{100, 30},
	}

	for _, tt := range tests {
		got := Score(sources(&exposure{ports: tt.ports}, false, false))
		if got.Score != tt.want {
			t.Errorf("%d ports: score = %d, want %d", tt.ports, got.Score, tt.want)
		}
		if tt.ports == 0 && len(got.Details) != 0 {
			t.Errorf("0 ports must not add a detail, got %v", got.Details)
		}
	}
}

func TestScoreCVERule(t *testing.T) {
	t.Parallel()

	for cves, want := range map[int]int{0: 0, 1: 10, 3: 30, 5: 30} {
		got := Score(sources(&exposure{cves: cves}, false, false))
		if got.Score != want {
			t.Errorf("%d CVEs: score = %d, want %d", cves, got.Score, want)
		}
	}
}

func TestScoreFlags(t *testing.T) {
	t.Parallel()

	t.Run("blacklist adds 25", func(t *testing.T) {
		t.Parallel()

		got := Score(sources(nil, true, false))
		if got.Score != 25 {
			t.Errorf("score = %d, want 25", got.Score)
		}
	})

	t.Run("malware adds 25", func(t *testing.T) {
		t.Parallel()

		got := Score(sources(nil, false, true))
		if got.Score != 25 {
			t.Errorf("score = %d, want 25", got.Score)
		}
	})
}

func TestScoreTagOverlap(t *testing.T) {
	t.Parallel()

	got := Score(sources(&exposure{tags: []string{"honeypot", "malware", "unrelated"}}, false, false))

	if got.Score != 10 {
		t.Errorf("score = %d, want 10", got.Score)
	}
	if len(got.Details) != 1 {
		t.Fatalf("expected one detail, got %v", got.Details)
	}
	for _, tag := range []string{"honeypot", "malware"} {
		if !strings.Contains(got.Details[0], tag) {
			t.Errorf("detail %q should list %q", got.Details[0], tag)
		}
	}
	if strings.Contains(got.Details[0], "unrelated") {
		t.Errorf("detail %q must not list non-risky tags", got.Details[0])
	}

	dup := Score(sources(&exposure{tags: []string{"spam", "SPAM", "spam"}}, false, false))
	if dup.Score != 5 {
		t.Errorf("duplicate tags must count once, score = %d", dup.Score)
	}
}

func TestScoreDetailOrder(t *testing.T) {
	t.Parallel()

	got := Score(sources(&exposure{ports: 1, cves: 1, tags: []string{"proxy"}}, true, true))

	if len(got.Details) != 5 {
		t.Fatalf("expected 5 details, got %v", got.Details)
	}
	prefixes := []string{"1 open port", "1 known CVE", "address is on", "target is associated", "risky tags"}
	for i, p := range prefixes {
		if !strings.HasPrefix(got.Details[i], p) {
			t.Errorf("details[%d] = %q, want prefix %q", i, got.Details[i], p)
		}
	}
	// 5 + 10 + 25 + 25 + 5
	if got.Score != 70 {
		t.Errorf("score = %d, want 70", got.Score)
	}
	if got.Level != model.RiskHigh {
		t.Errorf("level = %v, want High", got.Level)
	}
}

func TestScoreClampedAndLevelDerived(t *testing.T) {
	t.Parallel()

	top := Score(sources(&exposure{ports: 50, cves: 50, tags: []string{"honeypot", "malware", "botnet", "spam", "proxy"}}, true, true))
	// 30 + 30 + 25 + 25 + 25 = 135 before clamping.
	if top.Score != 100 {
		t.Errorf("score = %d, want 100", top.Score)
	}

	r := rand.New(rand.NewPCG(1, 2))
	allTags := []string{"honeypot", "malware", "botnet", "spam", "proxy", "cdn", "cloud"}
	for range 500 {
		exp := exposure{ports: r.IntN(20), cves: r.IntN(10)}
		for _, tag := range allTags {
			if r.IntN(2) == 0 {
				exp.tags = append(exp.tags, tag)
			}
		}
		got := Score(sources(&exp, r.IntN(2) == 0, r.IntN(2) == 0))

		if got.Score < 0 || got.Score > 100 {
			t.Fatalf("score %d out of range for %+v", got.Score, exp)
		}
		if got.Level != model.LevelForScore(got.Score) {
			t.Fatalf("level %v does not match score %d", got.Level, got.Score)
		}
		bl, mw := got.Score%2 == 0, got.Score%3 == 0
		first := Score(sources(&exp, bl, mw))
		if second := Score(sources(&exp, bl, mw)); first.Score != second.Score || !slices.Equal(first.Details, second.Details) {
			t.Fatal("scoring is not deterministic")
		}
	}
}

func TestScoreMissingAndFailedSources(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		got := Score(nil)
		if got.Score != 0 || got.Level != model.RiskLow || len(got.Details) != 0 {
			t.Errorf("unexpected assessment %+v", got)
		}
	})

	t.Run("failed exposure source is ignored", func(t *testing.T) {
		t.Parallel()

		bySource := map[string]model.SourceQueryResult{
			model.SourceExposure:  model.Failure(model.SourceExposure, errors.New("timeout")),
			model.SourceBlacklist: model.Success(model.SourceBlacklist, blacklist(true)),
		}
		got := Score(bySource)
		if got.Score != 25 {
			t.Errorf("score = %d, want 25", got.Score)
		}
	})

	t.Run("payload of unexpected type is ignored", func(t *testing.T) {
		t.Parallel()

		bySource := map[string]model.SourceQueryResult{
			model.SourceExposure: model.Success(model.SourceExposure, map[string]any{"ports": []int{1, 2}}),
		}
		if got := Score(bySource); got.Score != 0 {
			t.Errorf("score = %d, want 0", got.Score)
		}
	})
}
