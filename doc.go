// Package sitecheck periodically checks a list of URLs with HTTP HEAD
// requests and reports the status of each one.
//
// sitecheck is a library first: the caller validates raw URL text, starts an
// [Engine] with the resulting URLs and receives one [CheckResult] per URL per
// poll cycle through a callback. Displaying, sorting or trimming results is
// left to the caller. The sitecheck command (cmd/sitecheck) wraps the library
// with configuration, logging, metrics and an HTTP results API.
//
// # Quick Start
//
//	text := "https://example.com\nhttps://example.org/health"
//
//	v := sitecheck.ValidateText(text)
//	if err := v.Err(); err != nil {
//	    return err // names the malformed lines
//	}
//
//	urls, err := sitecheck.ParseURLs(v.URLs())
//	if err != nil {
//	    return err
//	}
//
//	engine, _ := sitecheck.NewEngine()
//	_, err = engine.Start(urls, time.Minute, 5*time.Second, func(r sitecheck.CheckResult) {
//	    fmt.Printf("%s %s\n", r.URL, r)
//	})
//	defer engine.Stop()
//
// # Validation
//
// [Validate] and [ValidateText] check each line against the URL pattern and
// report per-line validity, so a caller can point at the offending lines.
// Empty input is invalid as a whole. Validation never normalises; use
// [ParseURL] or [ParseURLs] for that.
//
// # Polling
//
// Each cycle issues one HEAD request per URL concurrently (see
// [WithMaxConcurrency] to bound it) and waits for all of them before the
// next cycle is scheduled interval later. Every URL yields exactly one result
// per cycle:
//
//   - an HTTP response of any status, reported in [CheckResult.StatusCode]
//   - a timeout, reported as [ErrorTimeout]
//   - a transport failure, reported as [ErrorDNS], [ErrorConnectionRefused],
//     [ErrorTLS] or [ErrorNetwork]
//
// Failures are results, never errors: one failing URL does not affect the
// others or the session. [Engine.Stop] aborts requests in flight and no
// result is delivered after it returns.
//
// # Architecture
//
// sitecheck consists of several packages:
//
//   - internal/poller: HEAD client, failure classification and cycle scheduler
//   - internal/history: Per-URL result history with a row cap, plus pub/sub
//   - internal/metrics: Prometheus collectors for results and cycles
//   - internal/server: HTTP results API, Server-Sent Events and /metrics
//   - config: Settings loading for the command
package sitecheck
