package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Nohrer/app-microserv-devsecops/internal/auth"
	"github.com/Nohrer/app-microserv-devsecops/internal/config"
	"github.com/Nohrer/app-microserv-devsecops/internal/gateway"
	transporthttp "github.com/Nohrer/app-microserv-devsecops/internal/transport/http"
)

const defaultPort = "8080"
const defaultOrderServiceURL = "http://localhost:8081"
const defaultProductServiceURL = "http://localhost:8082"
const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	config.LoadEnvFile(logger)

	port := config.Getenv(logger, "GATEWAY_PORT", defaultPort)
	jwtSecret := config.Getenv(logger, "JWT_SECRET", "dev-secret")
	orderURL, err := url.Parse(config.Getenv(logger, "ORDER_SERVICE_URL", defaultOrderServiceURL))
	if err != nil {
		logger.Fatal("order service url", zap.Error(err))
	}
	productURL, err := url.Parse(config.Getenv(logger, "PRODUCT_SERVICE_URL", defaultProductServiceURL))
	if err != nil {
		logger.Fatal("product service url", zap.Error(err))
	}

	verifier := auth.NewHMACVerifier([]byte(jwtSecret))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := transporthttp.NewMetrics(registry, "gateway")

	local := chi.NewRouter()
	local.Get("/health", transporthttp.HealthHandler)
	local.Method("GET", "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	local.NotFound(transporthttp.NotFoundHandler().ServeHTTP)

	edge := gateway.NewHandler(gateway.DefaultPolicy(), verifier, orderURL, productURL, local, logger)
	handler := transporthttp.RequestLogger(logger)(metrics.Middleware(edge))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	logger.Info("gateway listening", zap.String("addr", server.Addr))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
