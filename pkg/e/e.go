package e

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to HTTP status codes; everything
// else surfaces as an internal error.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConfig     = errors.New("configuration error")
)

// Common validation failures.
var (
	ErrNameRequired  = fmt.Errorf("%w: product name is required", ErrValidation)
	ErrBrandRequired = fmt.Errorf("%w: product brand is required", ErrValidation)
	ErrPriceRequired = fmt.Errorf("%w: product price is required", ErrValidation)
	ErrPriceNegative = fmt.Errorf("%w: product price must not be negative", ErrValidation)
	ErrEmptyBatch    = fmt.Errorf("%w: request contains no products", ErrValidation)

	ErrProductNotFound = fmt.Errorf("%w: product does not exist", ErrNotFound)
)

// Wrap wraps err with an operation prefix.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
