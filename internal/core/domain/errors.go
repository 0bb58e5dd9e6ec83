package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDatasetUnavailable = errors.New("reference dataset unavailable")
	ErrQuantityParse      = errors.New("malformed quantity")
	ErrUnknownUnit        = errors.New("unknown unit")
	ErrFoodNotFound       = errors.New("food not found")
	ErrReportNotFound     = errors.New("report not found")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
