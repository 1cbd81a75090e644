package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of one HEAD request within a poll cycle.
type Result struct {
	// URL is the target URL that was polled.
	URL string

	// Cycle is the 1-based number of the cycle that produced the result.
	Cycle uint64

	// StatusCode is the HTTP status code, zero when no response arrived.
	StatusCode int

	// Reason is the reason phrase of the status line.
	Reason string

	// ErrorKind classifies a failed request (see the Kind constants).
	ErrorKind string

	// Error is the request failure, nil when a response arrived.
	Error error

	// Latency is the time taken to complete the request.
	Latency time.Duration

	// CheckedAt is the timestamp when the result was observed.
	CheckedAt time.Time
}

// CycleStats describes a completed poll cycle.
type CycleStats struct {
	Cycle     uint64
	URLs      int
	Failures  int
	StartedAt time.Time
	Duration  time.Duration
}

// Config holds the timing settings of a [Scheduler].
type Config struct {
	// Interval is the pause between the end of one cycle and the start of the next.
	Interval time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxConcurrency bounds requests in flight within a cycle. Zero means one
	// goroutine per URL.
	MaxConcurrency int

	// OnCycle, when set, is called from the polling goroutine after every
	// cycle that ran to completion.
	OnCycle func(CycleStats)
}

// Scheduler polls a fixed set of URLs in repeated cycles.
//
// Each cycle issues one HEAD request per URL, waits for every request to
// finish (response, failure or timeout) and only then arms a timer for the
// next cycle. Cycles therefore never overlap, and per URL results arrive in
// wall-clock order.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	urls    []string
	cfg     Config
	client  *Client
	results chan Result
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewScheduler creates a new polling [Scheduler].
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(urls []string, cfg Config, client *Client, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		urls:    urls,
		cfg:     cfg,
		client:  client,
		results: make(chan Result, len(urls)),
		logger:  logger,
	}
}

// Results returns a receive-only channel that emits [Result] values.
//
// The channel is closed when the scheduler stops.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Start begins the polling loop in a background goroutine.
//
// The first cycle starts immediately. Start is idempotent; subsequent calls
// after the first are no-ops. If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	pollCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		for cycle := uint64(1); ; cycle++ {
			if !s.runCycle(pollCtx, cycle) {
				return
			}

			timer := time.NewTimer(s.cfg.Interval)
			select {
			case <-pollCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// Stop halts the scheduler and waits for the polling goroutine to exit.
//
// In-flight requests are aborted through context cancellation and their
// results are discarded. Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	if s.client != nil {
		s.client.Close()
	}

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// RunOnce polls every URL once and returns the results in URL order.
//
// RunOnce does not use the results channel and may be called on a scheduler
// that was never started.
func (s *Scheduler) RunOnce(ctx context.Context) []Result {
	out := make([]Result, len(s.urls))
	s.pollAll(ctx, 1, func(i int, r Result) {
		out[i] = r
	})
	return out
}

// runCycle polls every URL once, streaming results to the channel.
// Returns false when the context was cancelled before the cycle completed.
func (s *Scheduler) runCycle(ctx context.Context, cycle uint64) bool {
	start := time.Now()
	var failures atomic.Int64

	s.pollAll(ctx, cycle, func(_ int, r Result) {
		if r.ErrorKind != KindNone {
			failures.Add(1)
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case s.results <- r:
		case <-ctx.Done():
		}
	})

	if ctx.Err() != nil {
		return false
	}

	stats := CycleStats{
		Cycle:     cycle,
		URLs:      len(s.urls),
		Failures:  int(failures.Load()),
		StartedAt: start,
		Duration:  time.Since(start),
	}
	s.logger.Debug("poll cycle completed",
		zap.Uint64("cycle", stats.Cycle),
		zap.Int("urls", stats.URLs),
		zap.Int("failures", stats.Failures),
		zap.Duration("duration", stats.Duration),
	)
	if s.cfg.OnCycle != nil {
		s.cfg.OnCycle(stats)
	}
	return true
}

// pollAll issues one request per URL and blocks until all have finished.
func (s *Scheduler) pollAll(ctx context.Context, cycle uint64, emit func(int, Result)) {
	var g errgroup.Group
	if s.cfg.MaxConcurrency > 0 {
		g.SetLimit(s.cfg.MaxConcurrency)
	}

	for i, u := range s.urls {
		i, u := i, u
		g.Go(func() error {
			emit(i, s.poll(ctx, u, cycle))
			return nil
		})
	}

	_ = g.Wait()
}

// poll checks a single URL and returns the result.
func (s *Scheduler) poll(ctx context.Context, url string, cycle uint64) Result {
	resp := s.client.Head(ctx, url, s.cfg.Timeout)

	return Result{
		URL:        url,
		Cycle:      cycle,
		StatusCode: resp.StatusCode,
		Reason:     resp.Reason,
		ErrorKind:  resp.ErrorKind,
		Error:      resp.Error,
		Latency:    resp.Latency,
		CheckedAt:  time.Now(),
	}
}
