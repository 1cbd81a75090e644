package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jpalmerr/sitecheck/internal/history"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// healthTimeout bounds a single health probe.
	healthTimeout = 500 * time.Millisecond
)

// HealthFunc reports whether the service is healthy. A nil error means healthy.
type HealthFunc func(ctx context.Context) error

// Server handles HTTP requests for the results API.
//
// Server provides four endpoints:
//   - GET /api/results: Returns the retained history as JSON
//   - GET /api/sse: Server-Sent Events stream of new rows
//   - GET /metrics: Prometheus metrics, when a handler is configured
//   - GET /healthz: 200 when healthy, 503 otherwise
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store   history.Store
	port    int
	metrics http.Handler
	health  HealthFunc
	logger  *zap.Logger

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store holding the result history
//   - port: TCP port to listen on (0 picks a free port)
//   - metrics: Handler mounted at /metrics (may be nil)
//   - health: Probe used by /healthz (may be nil, meaning always healthy)
//   - logger: Logger for server events (may be nil)
//
// The server is not started until [Server.Start] is called.
func NewServer(st history.Store, port int, metrics http.Handler, health HealthFunc, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:   st,
		port:    port,
		metrics: metrics,
		health:  health,
		logger:  logger,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/results", s.handleResults)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the listening address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handleResults returns the retained history as JSON. With a url query
// parameter only that URL's rows are returned.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload any
	if url := r.URL.Query().Get("url"); url != "" {
		rows := s.store.Rows(url)
		if rows == nil {
			http.Error(w, "Unknown url", http.StatusNotFound)
			return
		}
		payload = history.Series{URL: url, Rows: rows}
	} else {
		payload = s.store.All()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode results response", zap.Error(err))
	}
}

// handleHealth reports the health probe outcome.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.health(ctx); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// handleSSE streams history rows via Server-Sent Events.
//
// On connect the retained rows are replayed, then new rows are streamed as
// they are appended. Writes carry a deadline so a stalled client cannot pin
// the handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// some ResponseWriter implementations lack deadline support
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", zap.Error(err))
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before replaying so no row falls between the two
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	for _, series := range s.store.All() {
		for _, row := range series.Rows {
			data, err := json.Marshal(row)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}
		}
	}

	for {
		select {
		case row, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(row)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
