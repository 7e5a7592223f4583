package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidDeadline is returned when the request deadline is not positive.
	ErrInvalidDeadline = errors.New("invalid deadline: must be positive")

	// ErrInvalidProbeTimeout is returned when the probe timeout is not
	// positive or not shorter than the deadline.
	ErrInvalidProbeTimeout = errors.New("invalid probe timeout: must be positive and shorter than the deadline")

	// ErrInvalidSourceTimeout is returned when the source timeout is not
	// positive or not shorter than the deadline.
	ErrInvalidSourceTimeout = errors.New("invalid source timeout: must be positive and shorter than the deadline")

	// ErrInvalidConcurrency is returned for a negative concurrency limit.
	// Zero means one goroutine per catalog site.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidBlocklistTTL is returned when the blocklist TTL is not positive.
	ErrInvalidBlocklistTTL = errors.New("invalid blocklist ttl: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidProxyAddress is returned when the external Tor proxy address
	// is not in host:port form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

	// ErrUnknownSource is returned when the config file names a source that
	// does not exist.
	ErrUnknownSource = errors.New("unknown source")
)
