package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/velikanov/hybrid-query-engine/internal/adapters/http"
	"github.com/velikanov/hybrid-query-engine/internal/bootstrap"
	"github.com/velikanov/hybrid-query-engine/internal/config"
	"github.com/velikanov/hybrid-query-engine/internal/observability/logging"
	"github.com/velikanov/hybrid-query-engine/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(
		app.ResolveUC,
		app.PlanUC,
		app.SearchUC,
		app.IngestUC,
		app.ReadUC,
		app.RemoveUC,
		httpadapter.RouterOptions{
			RateLimitRPS:     cfg.APIRateLimitRPS,
			RateLimitBurst:   cfg.APIRateLimitBurst,
			MaxInFlight:      cfg.APIMaxInFlight,
			BackpressureWait: time.Duration(cfg.APIBackpressureWaitMilli) * time.Millisecond,
			Metrics:          httpMetrics,
			CollectionStats:  app.Vector.CollectionStats,
		},
	).Handler()

	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", router)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
