package exchangerate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r, err := New("2025-01-02", decimal.RequireFromString("7.31"), SourceProvider)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02", r.Date)

	_, err = New("2025-01-02", decimal.Zero, SourceProvider)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = New("2025-01-02", decimal.NewFromInt(-1), SourceProvider)
	assert.ErrorIs(t, err, ErrInvalidRate)
}
