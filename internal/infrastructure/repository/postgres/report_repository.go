package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

type ReportRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db, now: time.Now}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS nutrition_reports (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	items JSONB NOT NULL DEFAULT '[]'::jsonb,
	result JSONB,
	total_calories DOUBLE PRECISION,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nutrition_reports_status ON nutrition_reports(status);
CREATE INDEX IF NOT EXISTS idx_nutrition_reports_created_at ON nutrition_reports(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.StoredReport) error {
	itemsJSON, err := json.Marshal(report.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO nutrition_reports (id, status, items, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		report.ID, string(report.Status), itemsJSON, report.Error, report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.StoredReport, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, items, result, error_message, created_at, updated_at
FROM nutrition_reports
WHERE id = $1
`, id)

	var report domain.StoredReport
	var status string
	var itemsRaw, resultRaw []byte

	err := row.Scan(&report.ID, &status, &itemsRaw, &resultRaw, &report.Error, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrReportNotFound, "get report", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}

	if err := json.Unmarshal(itemsRaw, &report.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if len(resultRaw) > 0 {
		var result domain.NutritionAnalysisResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		report.Result = &result
	}
	report.Status = domain.ReportStatus(status)
	return &report, nil
}

func (r *ReportRepository) SaveResult(ctx context.Context, id string, result *domain.NutritionAnalysisResult) error {
	if result == nil {
		return domain.WrapError(domain.ErrInvalidInput, "save report result", errors.New("result is nil"))
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE nutrition_reports
SET status = $2, result = $3, total_calories = $4, error_message = '', updated_at = $5
WHERE id = $1
`, id, string(domain.ReportStatusCompleted), resultJSON, result.Nutrition.Calories, r.now().UTC())
	if err != nil {
		return fmt.Errorf("save report result: %w", err)
	}
	return requireAffected(res, "save report result", id)
}

func (r *ReportRepository) MarkFailed(ctx context.Context, id string, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE nutrition_reports
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(domain.ReportStatusFailed), errMessage, r.now().UTC())
	if err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return requireAffected(res, "mark report failed", id)
}

func requireAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrReportNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
