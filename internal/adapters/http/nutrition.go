package httpadapter

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/core/usecase"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/export/xlsx"
)

type analyzeRequest struct {
	Items []domain.ParsedFoodItem `json:"items"`
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rt.writeError(w, r, "analyze", err)
		return
	}
	// An empty meal is a valid request with an empty report.
	if len(req.Items) > 0 {
		if err := usecase.ValidateItems(req.Items); err != nil {
			rt.writeError(w, r, "analyze", err)
			return
		}
	}

	result, err := rt.analyzer.ProcessParsedFoods(r.Context(), req.Items)
	if err != nil {
		rt.writeError(w, r, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) analyzeAsync(w http.ResponseWriter, r *http.Request) {
	if rt.reports == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "async analysis is not configured"})
		return
	}
	var req analyzeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rt.writeError(w, r, "analyze_async", err)
		return
	}

	report, err := rt.reports.Submit(r.Context(), req.Items)
	if err != nil {
		rt.writeError(w, r, "analyze_async", err)
		return
	}
	w.Header().Set("Location", "/v1/nutrition/reports/"+report.ID)
	writeJSON(w, http.StatusAccepted, report)
}

func (rt *Router) getReport(w http.ResponseWriter, r *http.Request) {
	report, ok := rt.loadReport(w, r, "get_report")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) exportReport(w http.ResponseWriter, r *http.Request) {
	report, ok := rt.loadReport(w, r, "export_report")
	if !ok {
		return
	}
	if report.Status != domain.ReportStatusCompleted || report.Result == nil {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "report is not completed",
			"status": string(report.Status),
		})
		return
	}

	var buf bytes.Buffer
	if err := xlsx.WriteReport(&buf, report); err != nil {
		rt.writeError(w, r, "export_report", err)
		return
	}
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="nutrition-report-`+report.ID+`.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) loadReport(w http.ResponseWriter, r *http.Request, operation string) (*domain.StoredReport, bool) {
	if rt.reports == nil {
		rt.writeError(w, r, operation, domain.WrapError(domain.ErrTemporary, operation, errors.New("report storage is not configured")))
		return nil, false
	}
	id, err := pathID(r)
	if err != nil {
		rt.writeError(w, r, operation, err)
		return nil, false
	}
	report, err := rt.reports.Get(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, operation, err)
		return nil, false
	}
	return report, true
}
