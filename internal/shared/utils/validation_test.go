package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ippgi/ippgi-prices/internal/shared/errors"
)

type triggerRequest struct {
	Job  string `json:"job" validate:"required,oneof=hourly midnight"`
	Date string `form:"date" validate:"omitempty,date"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		req     triggerRequest
		wantErr string
	}{
		{"valid", triggerRequest{Job: "hourly"}, ""},
		{"valid with date", triggerRequest{Job: "midnight", Date: "2025-01-31"}, ""},
		{"missing job", triggerRequest{}, "job is required"},
		{"unknown job", triggerRequest{Job: "weekly"}, "job must be one of: hourly midnight"},
		{"bad date", triggerRequest{Job: "hourly", Date: "31/01/2025"}, "date must be a date in YYYY-MM-DD format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			appErr := apperrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
			assert.Contains(t, appErr.Details, tt.wantErr)
		})
	}
}

type limitRequest struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=5"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Width string `json:"width" validate:"omitempty,numeric"`
}

func TestValidateStruct_BoundMessagesFollowFieldKind(t *testing.T) {
	tests := []struct {
		name    string
		req     limitRequest
		want    string
		notWant string
	}{
		{"number above max", limitRequest{Limit: 500}, "limit must be at most 100", "characters"},
		{"string above max", limitRequest{Name: "abcdefg"}, "name must be at most 5 characters long", ""},
		{"string below min", limitRequest{Name: "a"}, "name must be at least 2 characters long", ""},
		{"not numeric", limitRequest{Width: "abc"}, "width must be a number", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := apperrors.GetAppError(ValidateStruct(tt.req))
			require.NotNil(t, appErr)
			assert.Contains(t, appErr.Details, tt.want)
			if tt.notWant != "" {
				assert.NotContains(t, appErr.Details, tt.notWant)
			}
		})
	}
}
