package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelinsk/finpaper/internal/bootstrap"
	"github.com/avelinsk/finpaper/internal/config"
	"github.com/avelinsk/finpaper/internal/observability/logging"
	"github.com/avelinsk/finpaper/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker.metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker.metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker.subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeProcessRequests(ctx, func(handlerCtx context.Context, documentID, runID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerProcessBudget)
		defer cancel()

		workerMetrics.StartDocument()
		start := time.Now()

		outcome, err := app.ProcessUC.ProcessByID(processCtx, documentID, runID)
		workerMetrics.FinishDocument("worker", time.Since(start), err)
		if err == nil {
			workerMetrics.RecordClassification("worker", string(outcome.DocumentType))
		}
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
