package sitecheck

import (
	"errors"

	"go.uber.org/zap"
)

// engineConfig holds mutable state during Engine construction.
type engineConfig struct {
	logger            *zap.Logger
	maxConcurrency    int
	userAgent         string
	followRedirects   bool
	requestsPerSecond float64
	burst             int
	cycleCallbacks    []func(CycleSummary)
}

// Option is a function that configures an [Engine] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [NewEngine] and [Check]. Options return an
// error if validation fails.
type Option func(*engineConfig) error

// WithLogger sets a custom [zap.Logger] for the engine.
//
// If not specified, a no-op logger is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *engineConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithMaxConcurrency limits how many requests run at once within a cycle.
//
// By default every URL in a cycle is requested concurrently, bounded only by
// the HTTP client's connection pool.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *engineConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every HEAD request.
func WithUserAgent(ua string) Option {
	return func(cfg *engineConfig) error {
		cfg.userAgent = ua
		return nil
	}
}

// WithFollowRedirects controls whether 3xx responses are followed.
//
// Redirects are followed by default, so a moved page reports the status of
// its final target. Pass false to report the redirect status itself.
func WithFollowRedirects(follow bool) Option {
	return func(cfg *engineConfig) error {
		cfg.followRedirects = follow
		return nil
	}
}

// WithRequestRate paces outgoing requests to perSecond with the given burst.
//
// Waiting for the limiter happens before a request's timeout starts.
//
// Returns an error if perSecond is not positive or burst is below 1.
func WithRequestRate(perSecond float64, burst int) Option {
	return func(cfg *engineConfig) error {
		if perSecond <= 0 {
			return errors.New("request rate must be positive")
		}
		if burst < 1 {
			return errors.New("request burst must be at least 1")
		}
		cfg.requestsPerSecond = perSecond
		cfg.burst = burst
		return nil
	}
}

// WithCycleCallback registers a function called after every completed cycle.
//
// Callbacks run on the polling goroutine after all results of the cycle have
// been produced, so they must be non-blocking. Cycles cut short by Stop are
// not reported. Nil callbacks are silently ignored.
func WithCycleCallback(cb func(CycleSummary)) Option {
	return func(cfg *engineConfig) error {
		if cb == nil {
			return nil
		}
		cfg.cycleCallbacks = append(cfg.cycleCallbacks, cb)
		return nil
	}
}

func newEngineConfig(opts []Option) (*engineConfig, error) {
	cfg := &engineConfig{followRedirects: true}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg, nil
}
