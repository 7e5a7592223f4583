package model

import (
	"encoding/json"
	"time"
)

// ProbeStatus is the tag of a ProbeResult outcome.
type ProbeStatus int

const (
	// ProbeNotFound means the site answered but shows no profile for the identity.
	ProbeNotFound ProbeStatus = iota

	// ProbeFound means the site answered 200 with a page naming the identity
	// that is not a soft-404.
	ProbeFound

	// ProbeError means the probe could not complete (transport fault or timeout).
	ProbeError
)

// String returns a lowercase name of the status.
func (s ProbeStatus) String() string {
	switch s {
	case ProbeNotFound:
		return "not_found"
	case ProbeFound:
		return "found"
	case ProbeError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name so JSON reports stay readable.
func (s ProbeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ProbeResult is the outcome of checking one catalog site for one identity.
type ProbeResult struct {
	// Site is the catalog name of the probed site.
	Site string `json:"site"`

	// Status tags the outcome.
	Status ProbeStatus `json:"status"`

	// URL is the profile URL. It is set for every probe that built a URL,
	// but only meaningful for ProbeFound.
	URL string `json:"url,omitempty"`

	// Reason carries the fault description for ProbeError.
	Reason string `json:"reason,omitempty"`
}

// Found builds a ProbeFound result.
func Found(site, url string) ProbeResult {
	return ProbeResult{Site: site, Status: ProbeFound, URL: url}
}

// NotFound builds a ProbeNotFound result.
func NotFound(site, url string) ProbeResult {
	return ProbeResult{Site: site, Status: ProbeNotFound, URL: url}
}

// ProbeFailed builds a ProbeError result.
func ProbeFailed(site, url, reason string) ProbeResult {
	return ProbeResult{Site: site, Status: ProbeError, URL: url, Reason: reason}
}

// EnumerationReport collects one ProbeResult per catalog entry.
// The order of Results is not significant.
type EnumerationReport struct {
	// Identity is the enumerated username.
	Identity string `json:"identity"`

	// Results holds the reported probe outcomes. When FoundOnly is set it
	// contains only ProbeFound entries.
	Results []ProbeResult `json:"results"`

	// FoundCount counts every ProbeFound outcome, including when FoundOnly
	// filtered the other outcomes out of Results.
	FoundCount int `json:"found_count"`

	// ErrorCount counts ProbeError outcomes.
	ErrorCount int `json:"error_count"`

	// Probed is the number of catalog entries probed.
	Probed int `json:"probed"`

	// FoundOnly records whether Results was filtered.
	FoundOnly bool `json:"found_only"`

	// TimedOut is true when the request deadline expired before every probe
	// settled. Probes that did not settle are reported as ProbeError.
	TimedOut bool `json:"timed_out"`

	// StartedAt is when the enumeration began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the wall-clock duration of the enumeration.
	Elapsed time.Duration `json:"-"`
}

// FoundResults returns the ProbeFound entries of Results.
func (r *EnumerationReport) FoundResults() []ProbeResult {
	found := make([]ProbeResult, 0, r.FoundCount)
	for _, res := range r.Results {
		if res.Status == ProbeFound {
			found = append(found, res)
		}
	}
	return found
}

// MarshalJSON adds the elapsed time in milliseconds.
func (r *EnumerationReport) MarshalJSON() ([]byte, error) {
	type alias EnumerationReport
	return json.Marshal(struct {
		*alias
		ElapsedMS int64 `json:"elapsed_ms"`
	}{
		alias:     (*alias)(r),
		ElapsedMS: r.Elapsed.Milliseconds(),
	})
}
