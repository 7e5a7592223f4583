// Package enumerator checks whether an identity has a profile on each site
// of the catalog.
//
// The package is built from three layers:
//   - Classifier decides whether a 200 page is really a "not found" page
//   - Worker probes one site for one identity using the Classifier
//   - Enumerator fans a Worker probe out across the whole catalog
//
// Every catalog entry is probed, and the enumeration waits for all probes to
// settle. A match on one site never cancels the others, so the report is the
// full union of outcomes. Faults stay inside the probe that hit them and are
// reported as ProbeError results.
//
// Design decision: Each probe writes its result into its own slot of a
// pre-sized slice, and the coordinating goroutine tallies the slots after the
// join. No goroutine appends to shared state, so there is nothing to lock.
package enumerator
