package logrusstackhook

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/usuwarium/usuwarium/internal/stackutil"
)

// FilterFunc reports whether a frame should be included in the log entry.
type FilterFunc func(frame runtime.Frame) bool

func SkipPathsContaining(values ...string) FilterFunc {
	return func(frame runtime.Frame) bool {
		for _, value := range values {
			if strings.Contains(frame.File, value) {
				return false
			}
		}

		return true
	}
}

var (
	DefaultLevels = []logrus.Level{logrus.DebugLevel, logrus.TraceLevel}
	DefaultFilter = SkipPathsContaining("github.com/sirupsen/logrus")
)

// Hook attaches the call stack to log entries at the configured levels, one
// stack.NN field per frame.
type Hook struct {
	levels []logrus.Level
	filter FilterFunc
}

func New(levels []logrus.Level, filter FilterFunc) *Hook {
	if levels == nil {
		levels = DefaultLevels
	}

	if filter == nil {
		filter = DefaultFilter
	}

	return &Hook{levels: levels, filter: filter}
}

func (h *Hook) Levels() []logrus.Level { return h.levels }

func (h *Hook) Fire(e *logrus.Entry) error {
	for i, frame := range stackutil.Capture(25, 0) {
		if !h.filter(frame) {
			continue
		}

		e.Data[fmt.Sprintf("stack.%02d", i)] = stackutil.FrameString(frame)
	}

	return nil
}
