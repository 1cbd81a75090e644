package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestScheduler(urls []string, cfg Config) *Scheduler {
	return NewScheduler(urls, cfg, NewClient(ClientConfig{}), zap.NewNop())
}

func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started does not panic and is a safe no-op.
func TestScheduler_StopBeforeStart(t *testing.T) {
	scheduler := newTestScheduler([]string{"http://example.com"}, Config{Interval: time.Minute, Timeout: time.Second})

	scheduler.Stop()
}

// TestScheduler_StopTwice verifies that Stop() is idempotent and can be
// called multiple times without panic or deadlock.
func TestScheduler_StopTwice(t *testing.T) {
	server := okServer(t)
	scheduler := newTestScheduler([]string{server.URL}, Config{Interval: time.Minute, Timeout: time.Second})
	scheduler.Start(context.Background())

	scheduler.Stop()
	scheduler.Stop()
}

// TestScheduler_StopAfterStart verifies the normal lifecycle: Start followed
// by Stop results in clean shutdown with the results channel closed.
func TestScheduler_StopAfterStart(t *testing.T) {
	server := okServer(t)
	scheduler := newTestScheduler([]string{server.URL}, Config{Interval: time.Minute, Timeout: time.Second})
	scheduler.Start(context.Background())

	go func() {
		for range scheduler.Results() {
		}
	}()

	time.Sleep(50 * time.Millisecond)

	scheduler.Stop()

	select {
	case _, ok := <-scheduler.Results():
		if ok {
			t.Error("expected results channel to be closed after Stop()")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for results channel to close")
	}
}

// TestScheduler_ConcurrentStartStop verifies that calling Start() and Stop()
// concurrently does not cause a race condition or panic.
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	server := okServer(t)

	for i := 0; i < 100; i++ {
		scheduler := newTestScheduler([]string{server.URL}, Config{Interval: time.Minute, Timeout: time.Second})

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			scheduler.Start(context.Background())
		}()

		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()

		wg.Wait()

		for range scheduler.Results() {
		}
	}
}

// TestScheduler_StartTwice verifies that Start() is idempotent and does not
// spawn a second polling loop.
func TestScheduler_StartTwice(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	scheduler := newTestScheduler([]string{server.URL}, Config{Interval: time.Hour, Timeout: time.Second})
	scheduler.Start(context.Background())
	scheduler.Start(context.Background())

	select {
	case <-scheduler.Results():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first result")
	}
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

// TestScheduler_StopBeforeStartThenStart verifies that Start after Stop is a no-op.
func TestScheduler_StopBeforeStartThenStart(t *testing.T) {
	scheduler := newTestScheduler([]string{"http://example.com"}, Config{Interval: time.Minute, Timeout: time.Second})

	scheduler.Stop()
	scheduler.Start(context.TODO())
	scheduler.Stop()

	if _, ok := <-scheduler.Results(); ok {
		t.Error("expected closed results channel")
	}
}

// TestScheduler_ContextCancellation verifies that cancelling the parent context
// stops the scheduler gracefully.
func TestScheduler_ContextCancellation(t *testing.T) {
	server := okServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := newTestScheduler([]string{server.URL}, Config{Interval: time.Minute, Timeout: time.Second})
	scheduler.Start(ctx)

	go func() {
		for range scheduler.Results() {
		}
	}()

	cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Stop() did not complete after parent context cancellation")
	}
}

// TestScheduler_OneResultPerURLPerCycle verifies that each cycle yields exactly
// one result per URL, whatever the outcome.
func TestScheduler_OneResultPerURLPerCycle(t *testing.T) {
	ok := okServer(t)
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()

	urls := []string{ok.URL, missing.URL, slow.URL}
	scheduler := newTestScheduler(urls, Config{Interval: time.Hour, Timeout: 100 * time.Millisecond})
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	got := make(map[string]Result)
	for i := 0; i < len(urls); i++ {
		select {
		case r := <-scheduler.Results():
			if _, dup := got[r.URL]; dup {
				t.Fatalf("duplicate result for %s in cycle %d", r.URL, r.Cycle)
			}
			got[r.URL] = r
		case <-time.After(3 * time.Second):
			t.Fatalf("timeout waiting for result %d", i+1)
		}
	}

	if got[ok.URL].StatusCode != http.StatusOK {
		t.Errorf("ok StatusCode = %d, want 200", got[ok.URL].StatusCode)
	}
	if got[missing.URL].StatusCode != http.StatusNotFound {
		t.Errorf("missing StatusCode = %d, want 404", got[missing.URL].StatusCode)
	}
	if got[slow.URL].ErrorKind != KindTimeout {
		t.Errorf("slow ErrorKind = %q, want %q", got[slow.URL].ErrorKind, KindTimeout)
	}

	// interval is an hour, so nothing else may arrive
	select {
	case r := <-scheduler.Results():
		t.Errorf("unexpected extra result %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestScheduler_IntervalAfterCompletion verifies that the next cycle waits the
// full interval after the previous cycle finished, not after it started.
func TestScheduler_IntervalAfterCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
	}))
	defer server.Close()

	var mu sync.Mutex
	var cycles []CycleStats
	cfg := Config{
		Interval: 100 * time.Millisecond,
		Timeout:  time.Second,
		OnCycle: func(s CycleStats) {
			mu.Lock()
			cycles = append(cycles, s)
			mu.Unlock()
		},
	}

	scheduler := newTestScheduler([]string{server.URL}, cfg)
	scheduler.Start(context.Background())
	go func() {
		for range scheduler.Results() {
		}
	}()

	time.Sleep(700 * time.Millisecond)
	scheduler.Stop()

	mu.Lock()
	defer mu.Unlock()

	if len(cycles) < 2 {
		t.Fatalf("completed %d cycles, want at least 2", len(cycles))
	}
	for i := 1; i < len(cycles); i++ {
		prevEnd := cycles[i-1].StartedAt.Add(cycles[i-1].Duration)
		if gap := cycles[i].StartedAt.Sub(prevEnd); gap < 90*time.Millisecond {
			t.Errorf("cycle %d started %v after cycle %d ended, want >= interval", cycles[i].Cycle, gap, cycles[i-1].Cycle)
		}
		if cycles[i].Cycle != cycles[i-1].Cycle+1 {
			t.Errorf("cycle numbers not consecutive: %d then %d", cycles[i-1].Cycle, cycles[i].Cycle)
		}
	}
}

// TestScheduler_StopAbortsInFlight verifies that Stop does not wait for a slow
// request to reach its timeout.
func TestScheduler_StopAbortsInFlight(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	scheduler := newTestScheduler([]string{server.URL}, Config{Interval: time.Minute, Timeout: 10 * time.Second})
	scheduler.Start(context.Background())

	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	scheduler.Stop()
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Stop() took %v, want in-flight request aborted", elapsed)
	}

	for r := range scheduler.Results() {
		t.Errorf("unexpected result after stop: %+v", r)
	}
}

// TestScheduler_MaxConcurrency verifies that the concurrency limit is honoured.
func TestScheduler_MaxConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
	}))
	defer server.Close()

	urls := make([]string, 6)
	for i := range urls {
		urls[i] = server.URL + "/" + string(rune('a'+i))
	}

	scheduler := newTestScheduler(urls, Config{Interval: time.Hour, Timeout: time.Second, MaxConcurrency: 2})
	results := scheduler.RunOnce(context.Background())

	if len(results) != len(urls) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(urls))
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

// TestScheduler_RunOnceKeepsOrder verifies that RunOnce returns results in URL order.
func TestScheduler_RunOnceKeepsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/first" {
			time.Sleep(50 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	urls := []string{server.URL + "/first", server.URL + "/second"}
	results := newTestScheduler(urls, Config{Timeout: time.Second}).RunOnce(context.Background())

	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("results[%d].URL = %q, want %q", i, r.URL, urls[i])
		}
		if r.Cycle != 1 {
			t.Errorf("results[%d].Cycle = %d, want 1", i, r.Cycle)
		}
	}
}
