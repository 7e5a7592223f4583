// Package catalog provides the static site registry used for identity
// enumeration, together with the soft-404 heuristics and the user-agent pool.
//
// The default catalog is embedded from sites.yaml and is loaded once per
// process. A custom catalog with the same layout can be loaded from disk and
// replaces the embedded one entirely.
//
// Design decision: The soft-404 heuristics (generic phrases, shared
// "fake success" titles, auth-wall markers and per-site phrases) live in the
// catalog as data rather than in code, so that tuning a site never requires
// touching the classifier.
package catalog
