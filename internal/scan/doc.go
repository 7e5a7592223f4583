// Package scan classifies an IP or domain target, fans a query out to every
// applicable reconnaissance source and merges the outcomes into a
// model.ScanReport scored by package risk.
//
// Every source query runs in its own goroutine with its own timeout. A fault
// in one source, including a panic, is recorded as that source's Failure and
// never delays or aborts the others. Only target validation and domain
// resolution abort a scan, and both happen before any source is queried.
package scan
