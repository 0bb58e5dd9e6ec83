package main

import (
	"context"
	"os"

	_ "github.com/joho/godotenv/autoload"

	mcpadapter "github.com/kirillkom/meal-nutrition/internal/adapters/mcp"
	"github.com/kirillkom/meal-nutrition/internal/bootstrap"
	"github.com/kirillkom/meal-nutrition/internal/config"
	"github.com/kirillkom/meal-nutrition/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the protocol stream.
	logger := logging.NewJSONLoggerTo(os.Stderr, "nutrition-mcp", cfg.LogLevel)

	core, err := bootstrap.NewCore(context.Background(), cfg, nil, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	if err := mcpadapter.NewServer(core.Analyzer, core.Store, logger).ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
