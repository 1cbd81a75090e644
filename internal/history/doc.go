// Package history keeps a bounded per-URL history of check results and
// publishes new rows to subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining append, query and subscription operations
//   - [MemoryStore]: In-memory implementation with a per-URL row limit
//   - [Row]: Storage representation of one check result
//
// URLs keep the order in which they were first seen. Once a URL holds more
// rows than the limit, the oldest rows are evicted until it is back at the
// limit. Subscribers receive rows via channels with non-blocking sends, so
// slow subscribers miss rows rather than stall polling.
package history
