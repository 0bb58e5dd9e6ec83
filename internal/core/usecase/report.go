package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/core/ports"
)

// MaxItemsPerReport bounds a single submitted meal.
const MaxItemsPerReport = 200

// ReportUseCase stores analysis requests, hands them to the worker through
// the queue and records their outcome.
type ReportUseCase struct {
	reports  ports.ReportRepository
	queue    ports.MessageQueue
	analyzer ports.NutritionAnalyzer
}

func NewReportUseCase(
	reports ports.ReportRepository,
	queue ports.MessageQueue,
	analyzer ports.NutritionAnalyzer,
) *ReportUseCase {
	return &ReportUseCase{
		reports:  reports,
		queue:    queue,
		analyzer: analyzer,
	}
}

func (uc *ReportUseCase) Submit(ctx context.Context, items []domain.ParsedFoodItem) (*domain.StoredReport, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &domain.StoredReport{
		ID:        uuid.NewString(),
		Status:    domain.ReportStatusPending,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	job := domain.AnalysisJob{ReportID: report.ID, SubmittedAt: now}
	if err := uc.queue.PublishAnalysisRequested(ctx, job); err != nil {
		if failErr := uc.reports.MarkFailed(ctx, report.ID, "enqueue failed: "+err.Error()); failErr != nil {
			return nil, fmt.Errorf("publish analysis job: %w; mark failed: %v", err, failErr)
		}
		return nil, fmt.Errorf("publish analysis job: %w", err)
	}
	return report, nil
}

// ProcessJob analyzes a pending report. Reports that already reached a final
// status are left untouched so redelivered jobs are harmless.
func (uc *ReportUseCase) ProcessJob(ctx context.Context, job domain.AnalysisJob) error {
	report, err := uc.reports.GetByID(ctx, job.ReportID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if report.Status != domain.ReportStatusPending {
		return nil
	}

	result, err := uc.analyzer.ProcessParsedFoods(ctx, report.Items)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if failErr := uc.reports.MarkFailed(ctx, report.ID, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed: %v", err, failErr)
		}
		return err
	}

	if err := uc.reports.SaveResult(ctx, report.ID, result); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (uc *ReportUseCase) Get(ctx context.Context, id string) (*domain.StoredReport, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get report", errors.New("id is required"))
	}
	return uc.reports.GetByID(ctx, id)
}

// ValidateItems rejects empty meals, oversized meals and blank food names.
func ValidateItems(items []domain.ParsedFoodItem) error {
	if len(items) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate items", errors.New("at least one item is required"))
	}
	if len(items) > MaxItemsPerReport {
		return domain.WrapError(domain.ErrInvalidInput, "validate items", fmt.Errorf("at most %d items are allowed", MaxItemsPerReport))
	}
	for i, item := range items {
		if strings.TrimSpace(item.FoodName) == "" {
			return domain.WrapError(domain.ErrInvalidInput, "validate items", fmt.Errorf("item %d: foodName is required", i))
		}
		if c := item.Confidence; c != nil && (math.IsNaN(*c) || *c < 0 || *c > 1) {
			return domain.WrapError(domain.ErrInvalidInput, "validate items", fmt.Errorf("item %d: confidence must be within [0,1]", i))
		}
	}
	return nil
}
