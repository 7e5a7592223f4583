// Package risk reduces a merged scan result set to a single risk assessment.
package risk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nao1215/recongraph/internal/model"
)

// Rule weights and caps.
const (
	pointsPerPort   = 5
	maxPortPoints   = 30
	pointsPerCVE    = 10
	maxCVEPoints    = 30
	blacklistPoints = 25
	malwarePoints   = 25
	pointsPerTag    = 5
)

// riskyTags is the fixed vocabulary of exposure tags that add risk.
var riskyTags = map[string]struct{}{
	"honeypot": {},
	"malware":  {},
	"botnet":   {},
	"spam":     {},
	"proxy":    {},
}

// signals is the rule input extracted from the merged sources.
// Missing sources leave the zero value, which fires no rule.
type signals struct {
	ports       int
	cves        int
	tags        []string
	blacklisted bool
	malware     bool
}

// rule adds points and, when it fires, one detail line.
type rule func(s signals) (points int, detail string, fired bool)

// rules is evaluated in declaration order; details follow that order.
var rules = []rule{
	portRule,
	cveRule,
	blacklistRule,
	malwareRule,
	tagRule,
}

// Score reduces bySource to a RiskAssessment.
// It is pure and deterministic: it performs no I/O, and only successful
// outcomes of the well-known exposure, blacklist and indicator sources are
// read. Failed or absent sources count as non-triggering.
//
// Design decision: We express rules as an ordered slice of functions
// rather than a weighted table because:
//  1. Each rule reads a different payload shape
//  2. Declaration order fixes the order of the detail lines
//  3. A new rule is one function with no change to the total logic
func Score(bySource map[string]model.SourceQueryResult) model.RiskAssessment {
	s := extract(bySource)

	total := 0
	details := make([]string, 0, len(rules))
	for _, r := range rules {
		points, detail, fired := r(s)
		if !fired {
			continue
		}
		total += points
		details = append(details, detail)
	}

	score := clamp(total)
	return model.RiskAssessment{
		Score:   score,
		Level:   model.LevelForScore(score),
		Details: details,
	}
}

// extract reads rule signals from the merged source outcomes.
func extract(bySource map[string]model.SourceQueryResult) signals {
	var s signals

	if p, ok := payload(bySource, model.SourceExposure); ok {
		if exp, ok := p.(model.ExposureSignals); ok {
			s.ports = exp.OpenPortCount()
			s.cves = exp.CVECount()
			s.tags = exp.TagSet()
		}
	}
	if p, ok := payload(bySource, model.SourceBlacklist); ok {
		if bl, ok := p.(model.BlacklistSignal); ok {
			s.blacklisted = bl.Blacklisted()
		}
	}
	if p, ok := payload(bySource, model.SourceIOC); ok {
		if mw, ok := p.(model.MalwareSignal); ok {
			s.malware = mw.MalwareAssociated()
		}
	}
	return s
}

func payload(bySource map[string]model.SourceQueryResult, name string) (any, bool) {
	res, ok := bySource[name]
	if !ok || !res.OK || res.Payload == nil {
		return nil, false
	}
	return res.Payload, true
}

func portRule(s signals) (int, string, bool) {
	if s.ports <= 0 {
		return 0, "", false
	}
	return min(pointsPerPort*s.ports, maxPortPoints), fmt.Sprintf("%d open port(s) exposed", s.ports), true
}

func cveRule(s signals) (int, string, bool) {
	if s.cves <= 0 {
		return 0, "", false
	}
	return min(pointsPerCVE*s.cves, maxCVEPoints), fmt.Sprintf("%d known CVE(s) reported", s.cves), true
}

func blacklistRule(s signals) (int, string, bool) {
	if !s.blacklisted {
		return 0, "", false
	}
	return blacklistPoints, "address is on the Talos IP blacklist", true
}

func malwareRule(s signals) (int, string, bool) {
	if !s.malware {
		return 0, "", false
	}
	return malwarePoints, "target is associated with malware indicators", true
}

func tagRule(s signals) (int, string, bool) {
	overlap := riskyOverlap(s.tags)
	if len(overlap) == 0 {
		return 0, "", false
	}
	return pointsPerTag * len(overlap), "risky tags: " + strings.Join(overlap, ", "), true
}

// riskyOverlap returns the distinct risky tags in tags, sorted.
func riskyOverlap(tags []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if _, risky := riskyTags[t]; !risky {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func clamp(score int) int {
	return max(model.MinRiskScore, min(score, model.MaxRiskScore))
}
