package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/gusto/internal/health"
	"github.com/vladislavdragonenkov/gusto/internal/version"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec // локальный адрес теста
	if err != nil {
		t.Fatalf("failed to get %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestStartMetricsServer_Endpoints(t *testing.T) {
	logger := log.WithField("test", "http")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.Version())
	srv, addr, err := startMetricsServer(ctx, "127.0.0.1:0", logger, prometheus.NewRegistry(), healthHandler)
	if err != nil {
		t.Fatalf("startMetricsServer failed: %v", err)
	}
	if srv == nil {
		t.Fatal("startMetricsServer should not return nil")
	}

	base := "http://" + addr.String()
	for _, path := range []string{"/metrics", "/healthz", "/livez", "/readyz"} {
		status, _ := get(t, base+path)
		if status != http.StatusOK {
			t.Errorf("%s returned status %d, expected 200", path, status)
		}
	}

	if _, body := get(t, base+"/livez"); body != "ok" {
		t.Errorf("expected 'ok' from /livez, got '%s'", body)
	}
}

func TestStartMetricsServer_ReadinessFailsOnCriticalChecker(t *testing.T) {
	logger := log.WithField("test", "http-readyz")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.Version())
	healthHandler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", func(context.Context) error {
		return errors.New("down")
	}))
	_, addr, err := startMetricsServer(ctx, "127.0.0.1:0", logger, prometheus.NewRegistry(), healthHandler)
	if err != nil {
		t.Fatalf("startMetricsServer failed: %v", err)
	}

	if status, _ := get(t, "http://"+addr.String()+"/readyz"); status != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from /readyz, got %d", status)
	}
	if status, _ := get(t, "http://"+addr.String()+"/livez"); status != http.StatusOK {
		t.Errorf("expected 200 from /livez, got %d", status)
	}
}

func TestStartMetricsServer_Shutdown(t *testing.T) {
	logger := log.WithField("test", "http-shutdown")
	ctx, cancel := context.WithCancel(context.Background())

	_, addr, err := startMetricsServer(ctx, "127.0.0.1:0", logger, prometheus.NewRegistry(), healthcheck.NewHandler("test"))
	if err != nil {
		t.Fatalf("startMetricsServer failed: %v", err)
	}
	url := fmt.Sprintf("http://%s/livez", addr)
	if status, _ := get(t, url); status != http.StatusOK {
		t.Fatalf("server should be running, got %d", status)
	}

	cancel()
	time.Sleep(200 * time.Millisecond)

	if _, err := http.Get(url); err == nil { //nolint:gosec,bodyclose // запрос должен упасть
		t.Error("server should be stopped after context cancellation")
	}
}

func TestStartMetricsServer_AddrInUse(t *testing.T) {
	logger := log.WithField("test", "http-invalid")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer listener.Close()

	_, _, err = startMetricsServer(context.Background(), listener.Addr().String(), logger, prometheus.NewRegistry(), healthcheck.NewHandler("test"))
	if err == nil {
		t.Fatal("expected error for busy address")
	}
}

func TestStartHTTPServer_ServesHandler(t *testing.T) {
	logger := log.WithField("test", "http-api")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	_, addr, err := startHTTPServer(ctx, "127.0.0.1:0", mux, logger)
	if err != nil {
		t.Fatalf("startHTTPServer failed: %v", err)
	}

	if _, body := get(t, "http://"+addr.String()+"/ping"); body != "pong" {
		t.Errorf("expected pong, got %q", body)
	}
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	shutdownHTTP(nil, log.WithField("test", "http-nil"))
}
