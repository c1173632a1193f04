package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/tpoints/internal/health"
)

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestStartMetricsServer_Endpoints(t *testing.T) {
	logger := log.WithField("test", "http")
	port := findFreePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler("test")
	healthHandler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", func(context.Context) error { return nil }))
	srv := startMetricsServer(ctx, fmt.Sprintf("127.0.0.1:%d", port), logger, healthHandler)
	if srv == nil {
		t.Fatal("startMetricsServer should not return nil")
	}
	time.Sleep(100 * time.Millisecond)

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	if code, body := getBody(t, base+"/metrics"); code != http.StatusOK || body == "" {
		t.Errorf("unexpected /metrics response: %d", code)
	}
	if code, _ := getBody(t, base+"/healthz"); code != http.StatusOK {
		t.Errorf("expected 200 for /healthz, got %d", code)
	}
	if code, body := getBody(t, base+"/livez"); code != http.StatusOK || body != "ok" {
		t.Errorf("unexpected /livez response: %d %q", code, body)
	}
	if code, body := getBody(t, base+"/readyz"); code != http.StatusOK || body != "ready" {
		t.Errorf("unexpected /readyz response: %d %q", code, body)
	}
}

func TestStartMetricsServer_StopsOnCancel(t *testing.T) {
	logger := log.WithField("test", "http-shutdown")
	port := findFreePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	startMetricsServer(ctx, fmt.Sprintf("127.0.0.1:%d", port), logger, healthcheck.NewHandler("test"))
	time.Sleep(100 * time.Millisecond)

	url := fmt.Sprintf("http://127.0.0.1:%d/livez", port)
	if code, _ := getBody(t, url); code != http.StatusOK {
		t.Fatalf("server should be running, got %d", code)
	}

	cancel()
	time.Sleep(200 * time.Millisecond)

	if _, err := http.Get(url); err == nil {
		t.Error("server should be stopped after context cancellation")
	}
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	shutdownHTTP(nil, log.WithField("test", "http-nil"))
}
