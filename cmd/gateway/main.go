// Command gateway is the facet query gateway's process entrypoint: it loads
// connections.yaml, wires the registry and query services, and serves
// the HTTP surface described in SPEC_FULL.md.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kushal-thakkar/facet/internal/httpapi"
	"github.com/kushal-thakkar/facet/internal/query"
	"github.com/kushal-thakkar/facet/internal/registry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultMetricsAddr = "0.0.0.0:0"

func main() {
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	logger.Info("starting facet gateway", "version", version, "commit", commit, "date", date)

	_ = godotenv.Load()

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		env := os.Getenv("SENTRY_ENVIRONMENT")
		if env == "" {
			env = "development"
		}
		tracesSampleRate := 0.1
		if env == "development" {
			tracesSampleRate = 1.0
		}
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Environment:      env,
			Release:          version,
			EnableTracing:    true,
			TracesSampleRate: tracesSampleRate,
		}); err != nil {
			logger.Warn("sentry initialization failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	connectionsPath := os.Getenv("CONNECTIONS_FILE")
	if connectionsPath == "" {
		connectionsPath = "connections.yaml"
	}
	predefined, err := registry.LoadConfigFile(connectionsPath, logger)
	if err != nil {
		logger.Warn("connections file not loaded, starting with no predefined connections", "path", connectionsPath, "error", err)
	}

	reg := registry.New(predefined)
	svc := query.NewService(reg, logger)

	if *metricsAddrFlag != "" {
		if listener, err := net.Listen("tcp", *metricsAddrFlag); err != nil {
			logger.Warn("failed to start metrics listener", "error", err)
		} else {
			logger.Info("prometheus metrics listening", "addr", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsServer := &http.Server{Handler: mux}
			go func() {
				if err := metricsServer.Serve(listener); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server error", "error", err)
				}
			}()
			defer metricsServer.Close()
		}
	}

	router := httpapi.NewRouter(svc, httpapi.BuildInfo{Version: version, Commit: commit, Date: date}, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("gateway listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-shutdown
	logger.Info("received shutdown signal, shutting down gracefully", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown error", "error", err)
	} else {
		logger.Info("server stopped gracefully")
	}
}
