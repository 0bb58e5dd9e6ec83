package xlsx

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

const (
	SheetSummary   = "Summary"
	SheetFoods     = "Foods"
	SheetNutrients = "Nutrients"
	SheetIssues    = "Issues"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteReport renders a completed report as a workbook with summary, food,
// nutrient and issue sheets.
func WriteReport(w io.Writer, report *domain.StoredReport) (err error) {
	if report == nil || report.Result == nil {
		return domain.WrapError(domain.ErrInvalidInput, "export report", errors.New("report has no result"))
	}
	result := report.Result

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close workbook: %w", closeErr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	for _, name := range []string{SheetFoods, SheetNutrients, SheetIssues} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	n := result.Nutrition
	summary := [][]any{
		{"Field", "Value"},
		{"Report ID", report.ID},
		{"Status", string(report.Status)},
		{"Created At", report.CreatedAt.UTC().Format(time.RFC3339)},
		{"Calories (kcal)", n.Calories},
		{"Protein (g)", n.Protein},
		{"Iron (mg)", n.Iron},
		{"Folic Acid (µg)", n.FolicAcid},
		{"Calcium (mg)", n.Calcium},
		{"Vitamin D (µg)", n.VitaminD},
		{"Confidence", n.ConfidenceScore},
		{"Confidence Level", domain.DisplayFor(n.ConfidenceScore).Level},
		{"Balance Score", n.BalanceScore},
		{"Completeness", n.Completeness},
		{"Items Found", result.Meta.TotalItemsFound},
		{"Input Items", result.Meta.TotalInputItems},
	}
	if err := writeRows(f, SheetSummary, summary, header); err != nil {
		return err
	}

	foods := [][]any{{"Food", "Quantity", "Confidence", "Level"}}
	for _, food := range result.Foods {
		foods = append(foods, []any{food.Name, food.Quantity, food.Confidence, domain.DisplayFor(food.Confidence).Level})
	}
	if err := writeRows(f, SheetFoods, foods, header); err != nil {
		return err
	}

	nutrients := [][]any{{"Nutrient", "Value", "Unit"}}
	for _, nt := range n.Nutrients {
		nutrients = append(nutrients, []any{nt.Name, nt.Value, nt.Unit})
	}
	if err := writeRows(f, SheetNutrients, nutrients, header); err != nil {
		return err
	}

	issues := [][]any{{"Type", "Detail"}}
	for _, name := range result.Meta.UnmatchedFoods {
		issues = append(issues, []any{"unmatched", name})
	}
	for _, name := range result.Meta.LowConfidenceMatches {
		issues = append(issues, []any{"low_confidence", name})
	}
	for _, msg := range result.Meta.Errors {
		issues = append(issues, []any{"error", msg})
	}
	if err := writeRows(f, SheetIssues, issues, header); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writeRows writes rows from A1 and styles the first row as a header.
func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	return nil
}
