package log

import (
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

type stackHook struct{}

func (h *stackHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	if level < zerolog.ErrorLevel {
		return
	}

	arr := zerolog.Arr()
	for _, f := range callers(4) {
		arr.Dict(zerolog.Dict().
			Int("line", f.Line).
			Str("file", f.File).
			Str("function", f.Function),
		)
	}
	e.Array("stack", arr)
}

type frame struct {
	Line     int
	File     string
	Function string
}

// callers walks the stack above the logging call, dropping zerolog's own
// frames and the runtime entry points.
func callers(skip int) []frame {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]frame, 0, n)
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, "github.com/rs/zerolog") && !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, frame{Line: f.Line, File: f.File, Function: f.Function})
		}
		if !more {
			break
		}
	}

	return out
}
