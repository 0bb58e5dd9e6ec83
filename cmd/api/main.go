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

	httpadapter "github.com/kirillkom/meal-nutrition/internal/adapters/http"
	"github.com/kirillkom/meal-nutrition/internal/bootstrap"
	"github.com/kirillkom/meal-nutrition/internal/config"
	"github.com/kirillkom/meal-nutrition/internal/observability/logging"
	"github.com/kirillkom/meal-nutrition/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("nutrition-api", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("nutrition-api")
	app, err := bootstrap.New(ctx, cfg, httpMetrics, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// A failed warmup is sticky: requests report it until a refresh succeeds.
	if err := app.Store.EnsureLoaded(ctx); err != nil {
		logger.Warn("reference_warmup_failed", "error", err)
	}
	go app.Store.RunPeriodicRefresh(ctx, cfg.ReferenceRefreshInterval)

	router := httpadapter.NewRouter(cfg, app.Analyzer, app.Matcher, app.Store, app.ReportUC, httpMetrics, logger).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
