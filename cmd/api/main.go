package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/avelinsk/finpaper/internal/adapters/http"
	"github.com/avelinsk/finpaper/internal/bootstrap"
	"github.com/avelinsk/finpaper/internal/config"
	"github.com/avelinsk/finpaper/internal/observability/logging"
	"github.com/avelinsk/finpaper/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(httpadapter.Deps{
		Ingestor:    app.IngestUC,
		Reprocessor: app.ReplayUC,
		Searcher:    app.SearchUC,
		Repo:        app.Repo,
		Files:       app.Storage,
		Metrics:     metrics.NewHTTPServerMetrics("api"),

		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxConcurrent:  cfg.APIMaxConcurrent,
	}).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api.listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api.shutdown_error", "error", err)
	}
}
