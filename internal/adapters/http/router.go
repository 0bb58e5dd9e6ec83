package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/meal-nutrition/internal/config"
	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/core/ports"
	"github.com/kirillkom/meal-nutrition/internal/observability/metrics"
)

const (
	serviceName  = "nutrition-api"
	maxBodyBytes = 1 << 20
)

type Router struct {
	analyzer ports.NutritionAnalyzer
	matcher  ports.FoodMatcher
	catalog  ports.FoodCatalog
	reports  ports.ReportService
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger

	rateLimitRPS     float64
	rateLimitBurst   int
	maxInflight      int
	backpressureWait time.Duration
}

// NewRouter wires the JSON API. reports and httpMetrics may be nil: the
// async endpoints then answer 503 and /metrics is not mounted.
func NewRouter(
	cfg config.Config,
	analyzer ports.NutritionAnalyzer,
	matcher ports.FoodMatcher,
	catalog ports.FoodCatalog,
	reports ports.ReportService,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		analyzer:         analyzer,
		matcher:          matcher,
		catalog:          catalog,
		reports:          reports,
		metrics:          httpMetrics,
		logger:           logger,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInflight:      cfg.APIMaxInflight,
		backpressureWait: cfg.APIBackpressureWait,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/nutrition/analyze", rt.analyze)
	mux.HandleFunc("POST /v1/nutrition/analyze/async", rt.analyzeAsync)
	mux.HandleFunc("GET /v1/nutrition/reports/{id}", rt.getReport)
	mux.HandleFunc("GET /v1/nutrition/reports/{id}/export", rt.exportReport)

	mux.HandleFunc("GET /v1/foods/search", rt.searchFoods)
	mux.HandleFunc("POST /v1/foods/match", rt.matchFoods)
	mux.HandleFunc("GET /v1/foods/{id}", rt.getFood)
	mux.HandleFunc("GET /v1/confidence/display", rt.confidenceDisplay)

	mux.HandleFunc("POST /v1/reference/refresh", rt.refreshReference)
	mux.HandleFunc("GET /v1/reference/stats", rt.referenceStats)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInflight, rt.backpressureWait, rt.onReject)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.onReject)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) onReject(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"operation", operation,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return domain.WrapError(domain.ErrInvalidInput, "decode body", fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return domain.WrapError(domain.ErrInvalidInput, "decode body", errors.New("request body is empty"))
		default:
			return domain.WrapError(domain.ErrInvalidInput, "decode body", errors.New("invalid json"))
		}
	}
	return nil
}

func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "path", errors.New("id is required"))
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
