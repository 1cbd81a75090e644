// Package server provides the HTTP surface of the sitecheck command.
//
// It handles all HTTP concerns:
//
//   - REST API: JSON history at "/api/results", optionally for one URL
//   - Server-Sent Events: Live result rows at "/api/sse"
//   - Metrics: Prometheus exposition at "/metrics"
//   - Health: Liveness probe at "/healthz"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
