package model

import (
	"regexp"
	"strings"
)

// IdentityKind is the tag of the Identity union.
type IdentityKind int

const (
	// IdentityUsername is the fallback kind for any non-empty text that is
	// neither an email address nor a phone number.
	IdentityUsername IdentityKind = iota + 1

	// IdentityEmail is an address checked against breach databases.
	IdentityEmail

	// IdentityPhone is an E.164-like number checked for validity.
	IdentityPhone
)

// String returns a lowercase name of the kind.
func (k IdentityKind) String() string {
	switch k {
	case IdentityUsername:
		return "username"
	case IdentityEmail:
		return "email"
	case IdentityPhone:
		return "phone"
	default:
		return "unknown"
	}
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]\d{1,14}$`)
)

// Identity is a classified footprint input.
// Kind is resolved once by ParseIdentity and never re-derived later.
type Identity struct {
	Kind  IdentityKind `json:"-"`
	Value string       `json:"value"`
}

// ParseIdentity classifies raw by ordered pattern match: email first, then
// phone, and username for everything else. Empty input is a *ValidationError.
func ParseIdentity(raw string) (Identity, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Identity{}, &ValidationError{Input: raw, Reason: "no identity provided"}
	case emailPattern.MatchString(s):
		return Identity{Kind: IdentityEmail, Value: s}, nil
	case phonePattern.MatchString(s):
		return Identity{Kind: IdentityPhone, Value: s}, nil
	default:
		return Identity{Kind: IdentityUsername, Value: s}, nil
	}
}
