package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/bootstrap"
	"github.com/velikanov/hybrid-query-engine/internal/config"
	"github.com/velikanov/hybrid-query-engine/internal/observability/logging"
	"github.com/velikanov/hybrid-query-engine/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics()
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", "error", err)
		}
	}()

	jobTimeout := time.Duration(cfg.WorkerJobTimeoutSeconds) * time.Second

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		if doc, err := app.Repo.GetByID(indexCtx, documentID); err == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(doc.CreatedAt))
		}

		workerMetrics.StartDocument("worker")
		start := time.Now()
		indexErr := app.IndexUC.IndexByID(indexCtx, documentID)
		workerMetrics.FinishDocument("worker", time.Since(start), indexErr)

		if indexErr == nil {
			if doc, err := app.Repo.GetByID(indexCtx, documentID); err == nil {
				workerMetrics.ObserveChunks("worker", doc.ChunkCount)
			}
		}
		return indexErr
	})
	if err != nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
