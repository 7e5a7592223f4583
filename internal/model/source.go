package model

// Well-known source names. The risk scorer reads its signals from the
// sources registered under these names.
const (
	SourceGeolocation = "ipapi"
	SourceBlacklist   = "talos"
	SourceTorExit     = "tor"
	SourceExposure    = "internetdb"
	SourceRank        = "tranco"
	SourceIOC         = "threatfox"
	SourceWhois       = "whois"
	SourceRegistry    = "ripe"
)

// SourceKey tells the orchestrator which form of the target a source needs.
type SourceKey int

const (
	// KeyAddress sources are queried with the resolved IPv4 address.
	KeyAddress SourceKey = iota

	// KeyDomain sources are queried with the original domain and are skipped
	// for IP targets.
	KeyDomain
)

// SourceQueryResult is the settled outcome of querying one source.
type SourceQueryResult struct {
	// Source is the source name.
	Source string `json:"source"`

	// OK is true for a Success outcome.
	OK bool `json:"ok"`

	// Payload is the source-specific data of a Success outcome.
	Payload any `json:"payload,omitempty"`

	// Reason describes a Failure outcome.
	Reason string `json:"reason,omitempty"`

	// Err is the error behind a Failure outcome, kept for errors.Is checks.
	Err error `json:"-"`
}

// Success builds a successful SourceQueryResult.
func Success(source string, payload any) SourceQueryResult {
	return SourceQueryResult{Source: source, OK: true, Payload: payload}
}

// Failure builds a failed SourceQueryResult from err.
func Failure(source string, err error) SourceQueryResult {
	reason := "unknown failure"
	if err != nil {
		reason = err.Error()
	}
	return SourceQueryResult{Source: source, OK: false, Reason: reason, Err: err}
}

// ExposureSignals is implemented by exposure payloads (open ports, CVEs, tags).
type ExposureSignals interface {
	OpenPortCount() int
	CVECount() int
	TagSet() []string
}

// BlacklistSignal is implemented by blacklist-membership payloads.
type BlacklistSignal interface {
	Blacklisted() bool
}

// MalwareSignal is implemented by indicator-of-compromise payloads.
type MalwareSignal interface {
	MalwareAssociated() bool
}
