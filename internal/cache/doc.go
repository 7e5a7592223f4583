// Package cache stores downloaded reference blocklists in SQLite.
//
// The store keeps one row per named list (for example the Talos IP block
// list and the Tor exit addresses) together with the time it was fetched
// and a SHA3-256 digest of its entries. Nothing about individual scans is
// ever written here; every scan stays stateless.
//
// The database is a single file under the XDG cache directory, opened with
// modernc.org/sqlite so the binary stays CGO-free.
package cache
