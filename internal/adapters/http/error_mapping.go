package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrQuantityParse),
		domain.IsKind(err, domain.ErrUnknownUnit):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrFoodNotFound),
		domain.IsKind(err, domain.ErrReportNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDatasetUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
