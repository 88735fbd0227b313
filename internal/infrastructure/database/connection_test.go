package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

type capturingLogger struct {
	logger.Interface
	level string
}

func (c *capturingLogger) Errorw(string, ...interface{}) { c.level = "error" }
func (c *capturingLogger) Warnw(string, ...interface{})  { c.level = "warn" }
func (c *capturingLogger) Debugw(string, ...interface{}) { c.level = "debug" }

func TestFilteredLogger_RoutesBySeverity(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"[error] Error 1062: Duplicate entry", "error"},
		{"SLOW SQL >= 200ms", "warn"},
		{"[1.2ms] [rows:1] SELECT * FROM exchange_rates", "debug"},
		{"SELECT VERSION()", ""},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			c := &capturingLogger{Interface: logger.NewNopLogger()}
			(&filteredLogger{log: c}).Printf("%s", tt.msg)
			assert.Equal(t, tt.want, c.level)
		})
	}
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
