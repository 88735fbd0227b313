// Package errors defines the application error type rendered by the HTTP
// layer and the machine-readable error types clients switch on.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the machine-readable error code sent to clients.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeInternal     ErrorType = "internal_error"

	ErrorTypeInvalidProductType  ErrorType = "invalid_product_type"
	ErrorTypeInvalidDate         ErrorType = "invalid_date"
	ErrorTypePriceNotFound       ErrorType = "price_not_found"
	ErrorTypeCategoryUnavailable ErrorType = "category_unavailable"
	ErrorTypeUpstream            ErrorType = "upstream_error"
)

// AppError carries an HTTP status alongside the client-facing type and message.
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// New builds an AppError of an arbitrary type.
func New(errType ErrorType, code int, message string, details ...string) *AppError {
	e := &AppError{Type: errType, Message: message, Code: code}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

// Wrap is New with an underlying cause kept for errors.Is/As.
func Wrap(cause error, errType ErrorType, code int, message string) *AppError {
	e := New(errType, code, message)
	e.cause = cause
	return e
}

func NewValidationError(message string, details ...string) *AppError {
	return New(ErrorTypeValidation, http.StatusBadRequest, message, details...)
}

func NewNotFoundError(message string, details ...string) *AppError {
	return New(ErrorTypeNotFound, http.StatusNotFound, message, details...)
}

func NewConflictError(message string, details ...string) *AppError {
	return New(ErrorTypeConflict, http.StatusConflict, message, details...)
}

func NewUnauthorizedError(message string, details ...string) *AppError {
	return New(ErrorTypeUnauthorized, http.StatusUnauthorized, message, details...)
}

func NewForbiddenError(message string, details ...string) *AppError {
	return New(ErrorTypeForbidden, http.StatusForbidden, message, details...)
}

func NewInternalError(message string, details ...string) *AppError {
	return New(ErrorTypeInternal, http.StatusInternalServerError, message, details...)
}

// NewInvalidProductTypeError reports a product type outside the material catalogue.
func NewInvalidProductTypeError(productType string, valid []string) *AppError {
	return New(ErrorTypeInvalidProductType, http.StatusBadRequest,
		fmt.Sprintf("invalid product type %q", productType),
		fmt.Sprintf("valid types: %v", valid))
}

func NewInvalidDateError(value string) *AppError {
	return New(ErrorTypeInvalidDate, http.StatusBadRequest,
		fmt.Sprintf("invalid date %q", value), "expected YYYY-MM-DD")
}

func NewPriceNotFoundError(productSpec, date string) *AppError {
	return New(ErrorTypePriceNotFound, http.StatusNotFound,
		"no price available for the requested product",
		fmt.Sprintf("product_spec=%s date=%s", productSpec, date))
}

// NewCategoryUnavailableError reports a category the last upstream fetch failed for.
func NewCategoryUnavailableError(name string) *AppError {
	return New(ErrorTypeCategoryUnavailable, http.StatusBadGateway,
		fmt.Sprintf("prices for %s are currently unavailable", name))
}

// NewUpstreamError hides the upstream failure detail from clients but keeps it as the cause.
func NewUpstreamError(cause error, message string) *AppError {
	return Wrap(cause, ErrorTypeUpstream, http.StatusBadGateway, message)
}

// GetAppError extracts an AppError from err's chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// HasType reports whether err carries an AppError of the given type.
func HasType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}
