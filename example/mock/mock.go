// Package mock serves demo targets for sitecheck: steady, missing, flaky and
// slow endpoints.
package mock

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SlowDelay is how long /slow takes to answer. Demo timeouts are shorter.
const SlowDelay = 10 * time.Second

// flakyState tracks the current status of /flaky and when it next changes.
type flakyState struct {
	idx          int
	nextChangeAt time.Time
}

// NewHandler returns the demo routes:
//
//   - /ok answers 200
//   - /missing answers 404
//   - /flaky cycles through 200, 503 and 500, changing every 20-60 seconds
//   - /slow answers 200 after [SlowDelay]
func NewHandler(logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		jitter()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		jitter()
		http.NotFound(w, r)
	})

	var (
		mu       sync.Mutex
		state    = flakyState{nextChangeAt: nextChange()}
		statuses = []int{http.StatusOK, http.StatusServiceUnavailable, http.StatusInternalServerError}
	)
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		jitter()

		mu.Lock()
		if time.Now().After(state.nextChangeAt) {
			from := statuses[state.idx]
			state.idx = (state.idx + 1) % len(statuses)
			state.nextChangeAt = nextChange()
			logger.Info("status change", zap.Int("from", from), zap.Int("to", statuses[state.idx]))
		}
		code := statuses[state.idx]
		mu.Unlock()

		w.WriteHeader(code)
	})

	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(SlowDelay):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	})

	return mux
}

// jitter simulates small latency variance.
func jitter() {
	time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)
}

func nextChange() time.Time {
	return time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
}
