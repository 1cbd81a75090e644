// Standalone mock server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/sitecheck watch -c example/sitecheck.yaml -f example/urls.txt
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jpalmerr/sitecheck/example/mock"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	fmt.Println("Mock server starting on :9999")
	fmt.Println("Routes: /ok /missing /flaky /slow")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	srv := &http.Server{
		Addr:              ":9999",
		Handler:           mock.NewHandler(logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
