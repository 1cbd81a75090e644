package poller

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"
)

// TestClient_UsesHeadMethod verifies that every request is a HEAD request.
func TestClient_UsesHeadMethod(t *testing.T) {
	methods := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods <- r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{})
	resp := client.Head(context.Background(), server.URL, time.Second)
	if resp.Error != nil {
		t.Fatalf("Head() error = %v", resp.Error)
	}

	if got := <-methods; got != http.MethodHead {
		t.Errorf("method = %q, want %q", got, http.MethodHead)
	}
}

// TestClient_ReportsErrorStatusCodes verifies that 4xx/5xx responses are
// reported as status codes, not errors.
func TestClient_ReportsErrorStatusCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{})
	resp := client.Head(context.Background(), server.URL, time.Second)

	if resp.Error != nil {
		t.Fatalf("Error = %v, want nil", resp.Error)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if resp.Reason != "Not Found" {
		t.Errorf("Reason = %q, want %q", resp.Reason, "Not Found")
	}
	if resp.ErrorKind != KindNone {
		t.Errorf("ErrorKind = %q, want empty", resp.ErrorKind)
	}
}

// TestClient_Timeout verifies that a slow server yields a timeout within the
// configured window.
func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(ClientConfig{})

	start := time.Now()
	resp := client.Head(context.Background(), server.URL, 100*time.Millisecond)
	elapsed := time.Since(start)

	if resp.ErrorKind != KindTimeout {
		t.Errorf("ErrorKind = %q, want %q (error: %v)", resp.ErrorKind, KindTimeout, resp.Error)
	}
	if resp.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", resp.StatusCode)
	}
	if elapsed > time.Second {
		t.Errorf("Head() took %v, want close to the 100ms timeout", elapsed)
	}
}

// TestClient_ConnectionRefused verifies classification of a closed port.
func TestClient_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	client := NewClient(ClientConfig{})
	resp := client.Head(context.Background(), "http://"+addr, time.Second)

	if resp.ErrorKind != KindConnectionRefused {
		t.Errorf("ErrorKind = %q, want %q (error: %v)", resp.ErrorKind, KindConnectionRefused, resp.Error)
	}
	if resp.Error == nil {
		t.Error("Error = nil, want connection error")
	}
}

// TestClient_ParentCancelIsNotTimeout verifies that cancelling the caller's
// context is reported as canceled rather than timeout.
func TestClient_ParentCancelIsNotTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	client := NewClient(ClientConfig{})
	resp := client.Head(ctx, server.URL, 5*time.Second)

	if resp.ErrorKind != KindCanceled {
		t.Errorf("ErrorKind = %q, want %q", resp.ErrorKind, KindCanceled)
	}
}

// TestClient_UserAgent verifies that the configured user agent is sent.
func TestClient_UserAgent(t *testing.T) {
	agents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
	}))
	defer server.Close()

	client := NewClient(ClientConfig{UserAgent: "sitecheck-test/1.0"})
	_ = client.Head(context.Background(), server.URL, time.Second)

	if got := <-agents; got != "sitecheck-test/1.0" {
		t.Errorf("User-Agent = %q, want %q", got, "sitecheck-test/1.0")
	}
}

// TestClient_Redirects verifies both redirect modes.
func TestClient_Redirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tests := []struct {
		name   string
		follow bool
		want   int
	}{
		{name: "not followed", follow: false, want: http.StatusMovedPermanently},
		{name: "followed", follow: true, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(ClientConfig{FollowRedirects: tt.follow})
			resp := client.Head(context.Background(), server.URL+"/old", time.Second)
			if resp.StatusCode != tt.want {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

// TestClient_RequestPacing verifies that the limiter spaces out requests.
func TestClient_RequestPacing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{RequestsPerSecond: 10, Burst: 1})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if resp := client.Head(context.Background(), server.URL, time.Second); resp.Error != nil {
			t.Fatalf("request %d failed: %v", i, resp.Error)
		}
	}

	// burst 1 at 10/s: the second and third requests wait ~100ms each
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("3 paced requests took %v, want at least 150ms", elapsed)
	}
}

// TestClient_ConnectionReuse verifies that the HTTP client reuses connections
// when making sequential requests to the same host.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{})

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5

	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		resp := client.Head(ctx, server.URL, 5*time.Second)
		if resp.Error != nil {
			t.Fatalf("request %d failed: %v", i, resp.Error)
		}
	}

	expectedMinReuse := numRequests - 2 // allow some tolerance
	if reusedCount < expectedMinReuse {
		t.Errorf("expected at least %d reused connections, got %d out of %d requests",
			expectedMinReuse, reusedCount, numRequests)
	}
}

// TestClient_Close verifies that Close() is safe to call and idempotent,
// including on a nil receiver.
func TestClient_Close(t *testing.T) {
	client := NewClient(ClientConfig{})
	client.Close()
	client.Close()

	var nilClient *Client
	nilClient.Close()
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "deadline", err: &url.Error{Op: "Head", URL: "http://x", Err: context.DeadlineExceeded}, want: KindTimeout},
		{name: "canceled", err: &url.Error{Op: "Head", URL: "http://x", Err: context.Canceled}, want: KindCanceled},
		{name: "dns", err: &url.Error{Op: "Head", URL: "http://x", Err: &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}}, want: KindDNS},
		{name: "dns timeout", err: &net.DNSError{Err: "i/o timeout", Name: "x", IsTimeout: true}, want: KindTimeout},
		{
			name: "refused",
			err: &url.Error{Op: "Head", URL: "http://x", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
			}},
			want: KindConnectionRefused,
		},
		{name: "unknown authority", err: &url.Error{Op: "Head", URL: "https://x", Err: x509.UnknownAuthorityError{}}, want: KindTLS},
		{name: "tls text", err: &url.Error{Op: "Head", URL: "https://x", Err: errors.New("tls: handshake failure")}, want: KindTLS},
		{name: "other", err: fmt.Errorf("boom"), want: KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
