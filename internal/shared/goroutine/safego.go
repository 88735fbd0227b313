// Package goroutine starts background work that must not take the process down.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

// SafeGo runs fn in a goroutine. A panic is logged with its stack and
// swallowed; a returned error is logged under the goroutine name.
func SafeGo(log logger.Interface, name string, fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
		}()
		if err := fn(); err != nil {
			log.Errorw("goroutine exited with error", "goroutine", name, "error", err)
		}
	}()
}
