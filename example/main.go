package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jpalmerr/sitecheck"
	"github.com/jpalmerr/sitecheck/example/mock"
)

const urlList = `http://localhost:9999/ok
http://localhost:9999/missing
http://localhost:9999/flaky
http://localhost:9999/slow
http://localhost:9999/ok
https://api.github.com`

func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	// start mock targets (see mock/mock.go)
	mockSrv := &http.Server{Addr: ":9999", Handler: mock.NewHandler(logger), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := mockSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mock server error", zap.Error(err))
		}
	}()
	defer func() { _ = mockSrv.Close() }()
	time.Sleep(100 * time.Millisecond)

	v := sitecheck.ValidateText(urlList)
	if err := v.Err(); err != nil {
		logger.Fatal("invalid url list", zap.Error(err))
	}
	urls, err := sitecheck.ParseURLs(v.URLs())
	if err != nil {
		logger.Fatal("invalid url list", zap.Error(err))
	}

	engine, err := sitecheck.NewEngine(
		sitecheck.WithLogger(logger.Named("engine")),
		sitecheck.WithCycleCallback(func(s sitecheck.CycleSummary) {
			fmt.Printf("-- cycle %d: %d urls, %d without response, %s\n",
				s.Cycle, s.URLs, s.Failures, s.Duration.Round(time.Millisecond))
		}),
	)
	if err != nil {
		logger.Fatal("failed to create engine", zap.Error(err))
	}

	// 6 lines, 5 distinct URLs; /slow always times out after 2s
	session, err := engine.Start(urls, 5*time.Second, 2*time.Second, func(r sitecheck.CheckResult) {
		fmt.Printf("%-36s %s\n", r.URL, r)
	})
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	fmt.Printf("session %s polling %d urls, Ctrl+C to stop\n", session.ID(), len(session.URLs()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	engine.Stop()
	fmt.Fprintln(os.Stderr, "stopped")
}
