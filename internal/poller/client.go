package poller

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// connection pooling limits to prevent resource exhaustion when polling many URLs
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
	defaultTLSHandshakeTimeout = 10 * time.Second
)

// Error kinds reported for requests that did not yield an HTTP response.
const (
	KindNone              = ""
	KindTimeout           = "timeout"
	KindDNS               = "dns"
	KindConnectionRefused = "connection_refused"
	KindTLS               = "tls"
	KindCanceled          = "canceled"
	KindNetwork           = "network"
)

// Response holds the outcome of a single HEAD request made by [Client].
type Response struct {
	// StatusCode is the HTTP status code. Zero if no response was received.
	StatusCode int

	// Reason is the reason phrase from the status line, without the code.
	Reason string

	// Latency is the total time taken for the request.
	Latency time.Duration

	// ErrorKind classifies a failed request; empty when a response arrived.
	ErrorKind string

	// Error is the underlying failure, nil when a response arrived.
	Error error
}

// ClientConfig tunes the HTTP client used for polling.
type ClientConfig struct {
	// UserAgent is sent with every request when non-empty.
	UserAgent string

	// FollowRedirects makes 3xx responses followed to their target.
	// When false the redirect response itself is reported.
	FollowRedirects bool

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64

	// Burst is the limiter burst size, at least 1 when pacing is enabled.
	Burst int

	// Transport overrides the base round tripper (tests).
	Transport http.RoundTripper
}

// Client issues HEAD requests with per-request timeouts.
//
// Timeouts are applied via context rather than a global client timeout so the
// same client can serve sessions with different timeout settings.
type Client struct {
	httpClient *http.Client
	base       *http.Transport
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates a new polling [Client].
//
// The transport is wrapped with otelhttp so that every request produces a span
// when a tracer provider is installed.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{userAgent: cfg.UserAgent}

	rt := cfg.Transport
	if rt == nil {
		c.base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
			TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		}
		rt = c.base
	}

	c.httpClient = &http.Client{
		// no default timeout - we use per-request timeouts via context
		Transport: otelhttp.NewTransport(rt),
	}
	if !cfg.FollowRedirects {
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c
}

// Head performs a HEAD request against rawURL and returns a structured [Response].
//
// The timeout covers the whole exchange up to the response headers. Head always
// returns a Response; failures are classified into ErrorKind rather than
// returned separately.
func (c *Client) Head(ctx context.Context, rawURL string, timeout time.Duration) Response {
	if c.limiter != nil {
		// pacing happens before the timeout window opens
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{ErrorKind: KindCanceled, Error: fmt.Errorf("request not sent: %w", err)}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return Response{
			Latency:   time.Since(start),
			ErrorKind: KindNetwork,
			Error:     fmt.Errorf("failed to create request: %w", err),
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := Classify(err)
		// the parent context being cancelled is a stop, not a timeout
		if ctx.Err() != nil {
			kind = KindCanceled
		}
		return Response{
			Latency:   time.Since(start),
			ErrorKind: kind,
			Error:     err,
		}
	}
	_ = resp.Body.Close()

	return Response{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp.Status, resp.StatusCode),
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if c.base != nil {
		c.base.CloseIdleConnections()
		return
	}
	c.httpClient.CloseIdleConnections()
}

// Classify maps a request error to one of the Kind constants.
func Classify(err error) string {
	if err == nil {
		return KindNone
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused
	}

	var (
		certInvalid   x509.CertificateInvalidError
		unknownAuth   x509.UnknownAuthorityError
		hostnameErr   x509.HostnameError
		recordErr     tls.RecordHeaderError
		verifyErr     *tls.CertificateVerificationError
		tlsAlertError tls.AlertError
	)
	switch {
	case errors.As(err, &certInvalid),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostnameErr),
		errors.As(err, &recordErr),
		errors.As(err, &verifyErr),
		errors.As(err, &tlsAlertError):
		return KindTLS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && strings.Contains(urlErr.Err.Error(), "tls:") {
		return KindTLS
	}

	return KindNetwork
}

// reasonPhrase strips the numeric code from a status line such as "404 Not Found".
func reasonPhrase(status string, code int) string {
	return strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
}
