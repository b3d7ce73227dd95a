package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/gusto/internal/health"
)

const shutdownTimeout = 5 * time.Second

// startMetricsServer запускает служебный HTTP: /metrics для Prometheus и health-проверки.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, gatherer prometheus.Gatherer, healthHandler *healthcheck.Handler) (*http.Server, net.Addr, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	bound, err := serveHTTP(ctx, srv, logger.WithField("server", "ops"))
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("метрики доступны по адресу %s/metrics", bound)
	return srv, bound, nil
}

// startHTTPServer запускает публичный HTTP API.
func startHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *log.Entry) (*http.Server, net.Addr, error) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	bound, err := serveHTTP(ctx, srv, logger.WithField("server", "api"))
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("HTTP API слушает %s", bound)
	return srv, bound, nil
}

// serveHTTP занимает порт синхронно, чтобы ошибка адреса вернулась вызывающему, а обслуживание идёт в фоне.
func serveHTTP(ctx context.Context, srv *http.Server, logger *log.Entry) (net.Addr, error) {
	lis, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("http server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()
	return lis.Addr(), nil
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
