package model

import "time"

// FootprintReport is the result of one footprint request. Exactly one of
// Enumeration, Breach or Phone is populated, according to Identity.Kind.
type FootprintReport struct {
	Identity Identity `json:"identity"`

	// Kind is the classified identity kind name.
	Kind string `json:"kind"`

	// Enumeration is set for usernames.
	Enumeration *EnumerationReport `json:"enumeration,omitempty"`

	// Breach is set for email addresses.
	Breach any `json:"breach,omitempty"`

	// Phone is set for phone numbers.
	Phone any `json:"phone,omitempty"`

	// Error describes a failed breach or phone lookup. The report is still
	// returned when it is set.
	Error string `json:"error,omitempty"`

	DateScanned time.Time `json:"date_scanned"`
}
