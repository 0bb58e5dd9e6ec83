package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/kirillkom/meal-nutrition/internal/bootstrap"
	"github.com/kirillkom/meal-nutrition/internal/config"
	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/observability/logging"
	"github.com/kirillkom/meal-nutrition/internal/observability/metrics"
)

const jobTimeout = 2 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("nutrition-worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("nutrition-worker")
	app, err := bootstrap.New(ctx, cfg, workerMetrics, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	go app.Store.RunPeriodicRefresh(ctx, cfg.ReferenceRefreshInterval)

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalysisRequested(ctx, func(handlerCtx context.Context, job domain.AnalysisJob) error {
		if !job.SubmittedAt.IsZero() {
			workerMetrics.ObserveQueueLag(time.Since(job.SubmittedAt))
		}
		workerMetrics.StartJob()
		start := time.Now()

		processCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()
		err := app.ReportUC.ProcessJob(processCtx, job)

		workerMetrics.FinishJob(time.Since(start), err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
