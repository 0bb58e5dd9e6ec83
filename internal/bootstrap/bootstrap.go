package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/meal-nutrition/internal/config"
	"github.com/kirillkom/meal-nutrition/internal/core/ports"
	"github.com/kirillkom/meal-nutrition/internal/core/usecase"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/dataset/localfs"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/dataset/s3"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/lexical"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/quantity"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/queue/nats"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/reference"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/resilience"
)

// Recorder receives both analysis and reference load observations.
type Recorder interface {
	ports.AnalysisRecorder
	ports.ReferenceRecorder
}

// Core is the storage-free part of the system: reference store, matcher and
// aggregator. The MCP server and the synchronous API need nothing else.
type Core struct {
	Config config.Config

	Store    *reference.Store
	Matcher  *usecase.FoodMatchingService
	Analyzer *usecase.NutritionAggregationService
	Executor *resilience.Executor
}

// App adds report persistence and the analysis job queue to Core.
type App struct {
	*Core

	Queue    ports.MessageQueue
	Reports  ports.ReportRepository
	ReportUC *usecase.ReportUseCase

	closeFn func()
}

func NewCore(ctx context.Context, cfg config.Config, recorder Recorder, logger *slog.Logger) (*Core, error) {
	if recorder == nil {
		recorder = ports.NoopRecorder
	}
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg), logger)

	source, err := newDatasetSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init reference source: %w", err)
	}
	store := reference.NewStore(source, reference.Options{
		Scorer:   lexical.ScorerByName(cfg.MatchFuzzyScorer),
		Executor: executor,
		Recorder: recorder,
		Logger:   logger,
	})

	matcher := usecase.NewFoodMatchingService(store, usecase.MatchConfig{
		CandidateLimit: cfg.MatchCandidateLimit,
		MinSimilarity:  cfg.MatchMinSimilarity,
		Workers:        cfg.AggregationWorkers,
	}, recorder, logger)

	analyzer := usecase.NewNutritionAggregationService(
		store,
		matcher,
		quantity.NewParser(),
		usecase.NewEvennessBalanceScorer(usecase.DefaultMealReference),
		usecase.AggregationConfig{
			LowConfidenceThreshold: cfg.LowConfidenceThreshold,
			Workers:                cfg.AggregationWorkers,
		},
		recorder,
		logger,
	)

	return &Core{
		Config:   cfg,
		Store:    store,
		Matcher:  matcher,
		Analyzer: analyzer,
		Executor: executor,
	}, nil
}

func New(ctx context.Context, cfg config.Config, recorder Recorder, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	core, err := NewCore(ctx, cfg, recorder, logger)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	reports := postgres.NewReportRepository(db)
	if err := reports.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: core.Executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return &App{
		Core:     core,
		Queue:    queue,
		Reports:  reports,
		ReportUC: usecase.NewReportUseCase(reports, queue, core.Analyzer),
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newDatasetSource(ctx context.Context, cfg config.Config) (ports.DatasetSource, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ReferenceSource)) {
	case "", "file":
		return localfs.New(cfg.ReferencePath)
	case "s3":
		return s3.New(ctx, s3.Options{
			Endpoint:        cfg.ReferenceS3Endpoint,
			Region:          cfg.ReferenceS3Region,
			Bucket:          cfg.ReferenceS3Bucket,
			Key:             cfg.ReferenceS3Key,
			AccessKeyID:     cfg.ReferenceS3AccessKeyID,
			SecretAccessKey: cfg.ReferenceS3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown reference source %q, expected file or s3", cfg.ReferenceSource)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	out.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	out.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	out.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	return out
}
