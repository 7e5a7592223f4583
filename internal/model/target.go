package model

import (
	"regexp"
	"strings"
)

// TargetKind tells the orchestrator which sources a target is keyed for.
type TargetKind int

const (
	// TargetIP is a dotted-quad IPv4 address.
	TargetIP TargetKind = iota + 1

	// TargetDomain is a DNS name that must be resolved before address-keyed
	// sources can be queried.
	TargetDomain
)

// String returns a lowercase name of the kind.
func (k TargetKind) String() string {
	switch k {
	case TargetIP:
		return "ip"
	case TargetDomain:
		return "domain"
	default:
		return "unknown"
	}
}

var (
	// ipv4Pattern accepts exactly four dot-separated octets in 0-255.
	ipv4Pattern = regexp.MustCompile(`^((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)

	// domainPattern accepts letter/digit/hyphen labels with an alphabetic
	// final label of two or more characters.
	domainPattern = regexp.MustCompile(`^([a-zA-Z0-9-]+\.)*[a-zA-Z0-9-]+\.[a-zA-Z]{2,}$`)
)

// Target is a validated scan input.
type Target struct {
	// Raw is the input as supplied, with surrounding whitespace removed.
	Raw string `json:"raw"`

	// Kind is the result of classification.
	Kind TargetKind `json:"-"`
}

// ParseTarget classifies raw as an IPv4 address or a domain.
// Anything else is rejected with a *ValidationError; no network call is
// involved in classification.
func ParseTarget(raw string) (Target, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Target{}, &ValidationError{Input: raw, Reason: "no IP or domain provided"}
	case ipv4Pattern.MatchString(s):
		return Target{Raw: s, Kind: TargetIP}, nil
	case domainPattern.MatchString(s):
		return Target{Raw: s, Kind: TargetDomain}, nil
	default:
		return Target{}, &ValidationError{Input: raw, Reason: "invalid IP or domain format"}
	}
}

// IsIP reports whether the target is an IPv4 address.
func (t Target) IsIP() bool {
	return t.Kind == TargetIP
}

// IsDomain reports whether the target is a domain name.
func (t Target) IsDomain() bool {
	return t.Kind == TargetDomain
}
