// Package model defines the request-scoped value types shared by the
// enumeration engine, the scan orchestrator and the report writers.
//
// This package contains the following main types:
//   - Target: a classified scan input (IPv4 address or domain)
//   - Identity: a classified footprint input (email, phone or username)
//   - ProbeResult and EnumerationReport: identity enumeration output
//   - SourceQueryResult and ScanReport: scan orchestration output
//   - RiskAssessment: the reduced risk score of a ScanReport
//
// Design decision: Every type here is constructed while handling one request
// and discarded once the report is written. Nothing in this package holds
// state across requests, which keeps the core free of locks and storage.
package model
