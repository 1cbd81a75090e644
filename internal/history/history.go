package history

import "time"

// Row is one recorded check result.
//
// Row is the storage representation of a result, shaped for JSON (used by
// the results API and SSE). It is decoupled from the engine's public types
// so the two can evolve independently.
type Row struct {
	// URL is the polled URL and the key rows are grouped under.
	URL string `json:"url"`

	// Cycle is the poll cycle that produced the row.
	Cycle uint64 `json:"cycle"`

	// StatusCode is the HTTP status code, omitted when no response arrived.
	StatusCode int `json:"status_code,omitempty"`

	// ErrorKind classifies a failed request, e.g. "timeout" or "dns".
	ErrorKind string `json:"error_kind,omitempty"`

	// Description is the reason phrase or error message.
	Description string `json:"description,omitempty"`

	// LatencyMs is the request latency in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// ObservedAt is when the result was recorded.
	ObservedAt time.Time `json:"observed_at"`
}

// Series is the retained rows of one URL, oldest first.
type Series struct {
	URL  string `json:"url"`
	Rows []Row  `json:"rows"`
}

// Store defines the interface for recording results and subscribing to them.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Append records a row under its URL and notifies all subscribers.
	// It returns the number of old rows evicted to respect the row limit.
	Append(row Row) int

	// Rows returns the retained rows of url, oldest first.
	Rows(url string) []Row

	// All returns every series in the order its URL was first seen.
	// The returned slice is a snapshot; modifications do not affect the store.
	All() []Series

	// Subscribe returns a channel that receives appended rows.
	// The returned channel has a buffer; slow consumers may miss rows.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Row

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Row)
}
