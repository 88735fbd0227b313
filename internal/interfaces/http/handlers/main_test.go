package handlers

import (
	"os"
	"testing"

	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
)

func TestMain(m *testing.M) {
	biztime.MustInit(biztime.DefaultTimezone)
	os.Exit(m.Run())
}
