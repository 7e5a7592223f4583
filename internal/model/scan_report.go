package model

import (
	"sort"
	"time"
)

// ScanReport is the merged result of one scan request.
type ScanReport struct {
	// Target is the classified input.
	Target Target `json:"target"`

	// TargetType is "ip" or "domain".
	TargetType string `json:"target_type"`

	// Address is the IPv4 address used for address-keyed sources. It equals
	// Target.Raw for IP targets.
	Address string `json:"address"`

	// BySource maps every queried source to its settled outcome.
	// A Failure never removes another source's entry.
	BySource map[string]SourceQueryResult `json:"by_source"`

	// Risk is attached after every source has settled.
	Risk *RiskAssessment `json:"risk,omitempty"`

	// TimedOut is true when the request deadline expired before every
	// source settled.
	TimedOut bool `json:"timed_out"`

	// DateScanned is when the scan started.
	DateScanned time.Time `json:"date_scanned"`
}

// NewScanReport creates an empty report for target.
func NewScanReport(target Target) *ScanReport {
	return &ScanReport{
		Target:      target,
		TargetType:  target.Kind.String(),
		BySource:    make(map[string]SourceQueryResult),
		DateScanned: time.Now(),
	}
}

// SourceNames returns the queried source names in sorted order.
func (r *ScanReport) SourceNames() []string {
	names := make([]string, 0, len(r.BySource))
	for name := range r.BySource {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FailedSources returns the names of sources whose outcome is Failure, sorted.
func (r *ScanReport) FailedSources() []string {
	var failed []string
	for _, name := range r.SourceNames() {
		if !r.BySource[name].OK {
			failed = append(failed, name)
		}
	}
	return failed
}
