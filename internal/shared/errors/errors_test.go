package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "not_found: missing", NewNotFoundError("missing").Error())
	assert.Equal(t, "validation_error: bad (field x)", NewValidationError("bad", "field x").Error())
}

func TestNewInvalidProductTypeError(t *testing.T) {
	err := NewInvalidProductTypeError("steel", []string{"gi", "gl"})

	assert.Equal(t, ErrorTypeInvalidProductType, err.Type)
	assert.Equal(t, http.StatusBadRequest, err.Code)
	assert.Contains(t, err.Details, "gi")
}

func TestGetAppError_ThroughWrapping(t *testing.T) {
	base := NewInvalidDateError("2025-13-01")
	wrapped := fmt.Errorf("fetch realtime: %w", base)

	assert.Same(t, base, GetAppError(wrapped))
	assert.True(t, HasType(wrapped, ErrorTypeInvalidDate))
	assert.False(t, HasType(wrapped, ErrorTypeNotFound))
	assert.Nil(t, GetAppError(stderrors.New("plain")))
}

func TestNewUpstreamError_KeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewUpstreamError(cause, "pricing service unavailable")

	assert.Equal(t, http.StatusBadGateway, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "connection refused")
}
