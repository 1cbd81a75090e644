package sitecheck

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/sitecheck/internal/poller"
)

// ErrorKind classifies a check that did not produce an HTTP response.
//
// ErrorKind is a string type so it serialises and logs readably. The zero
// value [ErrorNone] means an HTTP response was received, whatever its status.
type ErrorKind string

const (
	// ErrorNone indicates the request produced an HTTP response.
	ErrorNone ErrorKind = ""

	// ErrorTimeout indicates no response arrived within the per-request timeout.
	ErrorTimeout ErrorKind = ErrorKind(poller.KindTimeout)

	// ErrorDNS indicates the host name could not be resolved.
	ErrorDNS ErrorKind = ErrorKind(poller.KindDNS)

	// ErrorConnectionRefused indicates the target actively refused the connection.
	ErrorConnectionRefused ErrorKind = ErrorKind(poller.KindConnectionRefused)

	// ErrorTLS indicates a TLS handshake or certificate failure.
	ErrorTLS ErrorKind = ErrorKind(poller.KindTLS)

	// ErrorCanceled indicates the request was aborted by the caller.
	// Canceled results are never delivered by a running [Engine].
	ErrorCanceled ErrorKind = ErrorKind(poller.KindCanceled)

	// ErrorNetwork covers every other transport failure.
	ErrorNetwork ErrorKind = ErrorKind(poller.KindNetwork)
)

// String returns the kind name, or "none" for [ErrorNone].
func (k ErrorKind) String() string {
	if k == ErrorNone {
		return "none"
	}
	return string(k)
}

// CheckResult is the outcome of one HEAD request to one URL in one poll cycle.
//
// CheckResult is immutable after creation. Exactly one of StatusCode and
// ErrorKind is set: an HTTP response of any status (including 4xx and 5xx)
// sets StatusCode, a timeout or transport failure sets ErrorKind.
type CheckResult struct {
	// URL is the polled URL and the key results are grouped under.
	URL URLEntry `json:"url" yaml:"url"`

	// StatusCode is the HTTP status code. Zero when no response was received.
	StatusCode int `json:"status_code,omitempty" yaml:"status_code,omitempty"`

	// ErrorKind classifies the failure when no response was received.
	ErrorKind ErrorKind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`

	// Description is the reason phrase of the response when it adds text to
	// the numeric code, or the error message of a failed request.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// ObservedAt is when the result was recorded.
	ObservedAt time.Time `json:"observed_at" yaml:"observed_at"`

	// Latency is the time taken by the request.
	Latency time.Duration `json:"latency" yaml:"latency"`

	// Cycle is the 1-based poll cycle number within the session.
	Cycle uint64 `json:"cycle" yaml:"cycle"`

	// SessionID identifies the [Session] that produced the result.
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

// HasStatusCode reports whether an HTTP response was received.
func (r CheckResult) HasStatusCode() bool {
	return r.StatusCode != 0
}

// Failed reports whether the request failed before a response arrived.
// HTTP error statuses are not failures.
func (r CheckResult) Failed() bool {
	return r.ErrorKind != ErrorNone
}

// String renders the result as a single status line, e.g. "404 Not Found"
// or "timeout: context deadline exceeded".
func (r CheckResult) String() string {
	if r.HasStatusCode() {
		return strings.TrimSpace(fmt.Sprintf("%d %s", r.StatusCode, r.Description))
	}
	if r.Description == "" {
		return r.ErrorKind.String()
	}
	return fmt.Sprintf("%s: %s", r.ErrorKind, r.Description)
}

// fromPollerResult converts an internal poller result to the public type.
func fromPollerResult(pr poller.Result, sessionID string) CheckResult {
	res := CheckResult{
		URL:        URLEntry(pr.URL),
		StatusCode: pr.StatusCode,
		ErrorKind:  ErrorKind(pr.ErrorKind),
		ObservedAt: pr.CheckedAt,
		Latency:    pr.Latency,
		Cycle:      pr.Cycle,
		SessionID:  sessionID,
	}

	switch {
	case pr.Error != nil:
		res.Description = pr.Error.Error()
	case informativeReason(pr.Reason, pr.StatusCode):
		res.Description = pr.Reason
	}
	return res
}

// informativeReason reports whether a reason phrase says more than the code.
func informativeReason(reason string, code int) bool {
	return code != 0 && reason != "" && reason != strconv.Itoa(code)
}
