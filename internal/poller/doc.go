// Package poller provides the HTTP HEAD polling machinery for sitecheck.
//
// This package is internal to sitecheck. It issues one HEAD request per URL
// per cycle, enforces per-request timeouts and classifies network failures.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper issuing HEAD requests with timeouts
//   - [Scheduler]: Runs non-overlapping poll cycles for a fixed URL set
//   - [Result]: Outcome of polling a single URL within a cycle
//   - [Classify]: Maps request errors to failure kinds
//
// Users of the sitecheck library should not need to interact with this
// package directly. Polling is driven through sitecheck.Engine.
package poller
