// Package footprint classifies an identity once and dispatches it to the
// matching lookup: a breach check for email addresses, a validity check for
// phone numbers, and a presence enumeration across the site catalog for
// everything else.
package footprint
