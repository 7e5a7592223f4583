// Package source implements the reconnaissance data providers queried by the
// scan orchestrator.
//
// Each provider satisfies scan.Source: it reports its name, whether it is
// keyed by address or by domain, and turns one query into a typed payload.
// Providers never log and never retry; a fault is returned as a
// *model.TransportError or *model.FormatError and recorded by the
// orchestrator as that source's Failure.
//
// Payloads that feed the risk score implement the signal interfaces in
// package model: ExposurePayload (ports, CVEs, tags), TalosPayload
// (blacklist membership) and IOCPayload (malware association).
package source
