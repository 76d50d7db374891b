package stackutil

import (
	"fmt"
	"runtime"
)

// Capture returns up to max frames of the calling goroutine's stack. skip
// counts frames above the caller of Capture; zero starts at the caller.
func Capture(max, skip int) []runtime.Frame {
	pc := make([]uintptr, max)

	// +2 accounts for runtime.Callers and Capture itself
	n := runtime.Callers(skip+2, pc)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pc[:n])

	var out []runtime.Frame
	for {
		frame, more := frames.Next()

		out = append(out, frame)

		if !more {
			break
		}
	}

	return out
}

func FrameString(f runtime.Frame) string {
	return fmt.Sprintf("%s:%d: %s", f.File, f.Line, f.Function)
}
