package sitecheck

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jpalmerr/sitecheck/internal/poller"
)

// State is the lifecycle state of an [Engine].
type State int

const (
	// Idle means no session is being polled.
	Idle State = iota

	// Running means a session is being polled.
	Running
)

// String returns "idle" or "running".
func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Session is the set of URLs being monitored together with its timing.
//
// Session is immutable. Editing the URL list means starting a new session,
// which replaces the old one.
type Session struct {
	id        string
	urls      []URLEntry
	interval  time.Duration
	timeout   time.Duration
	startedAt time.Time
}

// ID returns the unique session identifier carried by every [CheckResult].
func (s *Session) ID() string {
	return s.id
}

// URLs returns a copy of the deduplicated URLs polled by the session.
func (s *Session) URLs() []URLEntry {
	cp := make([]URLEntry, len(s.urls))
	copy(cp, s.urls)
	return cp
}

// Interval returns the pause between the end of one cycle and the start of the next.
func (s *Session) Interval() time.Duration {
	return s.interval
}

// Timeout returns the per-request timeout.
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// StartedAt returns when the session was started.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// CycleSummary describes a completed poll cycle.
type CycleSummary struct {
	SessionID string
	Cycle     uint64
	URLs      int
	Failures  int
	StartedAt time.Time
	Duration  time.Duration
}

// Engine polls a set of URLs with HEAD requests in repeated cycles and
// delivers one [CheckResult] per URL per cycle to a caller-supplied sink.
//
// An Engine is owned by its caller; there is no package-level state. The
// typical lifecycle is:
//
//	engine, err := sitecheck.NewEngine(sitecheck.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	session, err := engine.Start(urls, 30*time.Second, 5*time.Second, func(r sitecheck.CheckResult) {
//	    fmt.Println(r.URL, r)
//	})
//	...
//	engine.Stop()
//
// The sink is called serially from a single goroutine. It must not block for
// long and must not call Start or Stop itself, since both wait for the sink
// to return. Panics in the sink are recovered and logged.
type Engine struct {
	cfg    *engineConfig
	client *poller.Client
	logger *zap.Logger

	mu      sync.Mutex // serialises Start and Stop
	current atomic.Pointer[run]
}

// run is the live state of one session.
type run struct {
	session   *Session
	scheduler *poller.Scheduler
	active    atomic.Bool
	done      chan struct{}
}

// NewEngine creates an idle [Engine] with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg, err := newEngineConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:    cfg,
		client: newClient(cfg),
		logger: cfg.logger,
	}, nil
}

// Start begins monitoring urls and returns the new [Session].
//
// Duplicate URLs are polled once. The first cycle starts immediately; each
// following cycle starts interval after the previous one completed, so cycles
// never overlap. Every URL yields exactly one result per cycle: an HTTP status
// (any code), a timeout, or a network failure.
//
// Calling Start while running replaces the session: the old session is
// stopped as by [Engine.Stop] and the new one polls immediately.
//
// Returns an error wrapping [ErrInvalidInput] if urls is empty, interval or
// timeout is not positive, or onResult is nil. The running session, if any,
// is left untouched in that case.
func (e *Engine) Start(urls []URLEntry, interval, timeout time.Duration, onResult func(CheckResult)) (*Session, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: at least one url is required", ErrInvalidInput)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidInput, interval)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidInput, timeout)
	}
	if onResult == nil {
		return nil, fmt.Errorf("%w: result callback is required", ErrInvalidInput)
	}

	session := &Session{
		id:        uuid.NewString(),
		urls:      Dedupe(urls),
		interval:  interval,
		timeout:   timeout,
		startedAt: time.Now(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prev := e.current.Load(); prev != nil {
		e.logger.Info("restarting poll session", zap.String("previous_session", prev.session.id))
		e.stopRun(prev)
	}

	r := &run{session: session, done: make(chan struct{})}
	r.active.Store(true)

	logger := e.logger.With(zap.String("session", session.id))
	r.scheduler = poller.NewScheduler(toStrings(session.urls), poller.Config{
		Interval:       interval,
		Timeout:        timeout,
		MaxConcurrency: e.cfg.maxConcurrency,
		OnCycle: func(stats poller.CycleStats) {
			if !r.active.Load() {
				return
			}
			summary := CycleSummary{
				SessionID: session.id,
				Cycle:     stats.Cycle,
				URLs:      stats.URLs,
				Failures:  stats.Failures,
				StartedAt: stats.StartedAt,
				Duration:  stats.Duration,
			}
			for _, cb := range e.cfg.cycleCallbacks {
				invokeSafe(logger, "cycle callback", func() { cb(summary) })
			}
		},
	}, e.client, logger)

	go func() {
		defer close(r.done)
		for pr := range r.scheduler.Results() {
			// drop anything produced after stop was requested
			if !r.active.Load() {
				continue
			}
			result := fromPollerResult(pr, session.id)
			logResult(logger, result)
			invokeSafe(logger, "result callback", func() { onResult(result) })
		}
	}()

	e.current.Store(r)
	r.scheduler.Start(context.Background())

	logger.Info("poll session started",
		zap.Int("urls", len(session.urls)),
		zap.Duration("interval", interval),
		zap.Duration("timeout", timeout),
	)
	return session, nil
}

// Stop ends the current session and returns the engine to [Idle].
//
// No further cycles are scheduled. Requests in flight are aborted and their
// results discarded; once Stop returns no further results are delivered.
// Stop is idempotent and safe to call on an idle engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r := e.current.Load(); r != nil {
		e.stopRun(r)
		e.logger.Info("poll session stopped", zap.String("session", r.session.id))
	}
}

// State reports whether the engine is polling.
func (e *Engine) State() State {
	if e.current.Load() != nil {
		return Running
	}
	return Idle
}

// Session returns the current session, or nil when idle.
func (e *Engine) Session() *Session {
	if r := e.current.Load(); r != nil {
		return r.session
	}
	return nil
}

// stopRun tears down r. Caller must hold e.mu.
func (e *Engine) stopRun(r *run) {
	r.active.Store(false)
	r.scheduler.Stop()
	<-r.done
	e.current.CompareAndSwap(r, nil)
}

// Check polls every URL once and returns the results in input order after
// deduplication.
//
// Check is the one-shot counterpart of [Engine.Start]: it uses the same
// client settings and produces the same results, without scheduling. If ctx
// is cancelled the partial results are returned together with ctx.Err().
//
// Returns an error wrapping [ErrInvalidInput] if urls is empty or timeout is
// not positive.
func Check(ctx context.Context, urls []URLEntry, timeout time.Duration, opts ...Option) ([]CheckResult, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: at least one url is required", ErrInvalidInput)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidInput, timeout)
	}

	cfg, err := newEngineConfig(opts)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	client := newClient(cfg)
	defer client.Close()

	scheduler := poller.NewScheduler(toStrings(Dedupe(urls)), poller.Config{
		Timeout:        timeout,
		MaxConcurrency: cfg.maxConcurrency,
	}, client, cfg.logger)

	raw := scheduler.RunOnce(ctx)
	results := make([]CheckResult, len(raw))
	for i, pr := range raw {
		results[i] = fromPollerResult(pr, sessionID)
		logResult(cfg.logger, results[i])
	}
	return results, ctx.Err()
}

func newClient(cfg *engineConfig) *poller.Client {
	return poller.NewClient(poller.ClientConfig{
		UserAgent:         cfg.userAgent,
		FollowRedirects:   cfg.followRedirects,
		RequestsPerSecond: cfg.requestsPerSecond,
		Burst:             cfg.burst,
	})
}

func toStrings(urls []URLEntry) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = string(u)
	}
	return out
}

// logResult logs a check (DEBUG level for responses to reduce noise).
func logResult(logger *zap.Logger, r CheckResult) {
	fields := []zap.Field{
		zap.String("url", r.URL.String()),
		zap.Uint64("cycle", r.Cycle),
		zap.Duration("latency", r.Latency),
	}
	if r.Failed() {
		logger.Warn("check failed", append(fields,
			zap.String("kind", r.ErrorKind.String()),
			zap.String("error", r.Description),
		)...)
		return
	}
	logger.Debug("check completed", append(fields, zap.Int("status_code", r.StatusCode))...)
}

// invokeSafe calls fn with panic recovery. Panics are logged with a
// correlation id and the stack trace but do not propagate.
func invokeSafe(logger *zap.Logger, what string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(what+" panicked",
				zap.String("correlation_id", uuid.NewString()),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	fn()
}
