package bundlelib

import (
	"fmt"
	"runtime/debug"

	"github.com/warpdl/warpbundle/pkg/logger"
)

// safeGo runs fn in a goroutine with panic recovery. A recovered panic is
// logged with its stack and handed to onPanic.
func safeGo(l logger.Logger, context string, onPanic func(r interface{}), fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if l != nil {
					l.Error("PANIC [%s]: %v\n%s", context, r, debug.Stack())
				}
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}

// panicError converts a recovered value into an attempt failure.
func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("transport panicked: %w", err)
	}
	return fmt.Errorf("transport panicked: %v", r)
}
