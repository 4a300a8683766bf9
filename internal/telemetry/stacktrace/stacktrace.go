// Package stacktrace turns errors into the textual stack trace and source
// location carried by error events.
package stacktrace

import (
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
)

const anonymous = "anonymous"

var (
	funcFrame = regexp.MustCompile(`^at (.+?) \((.*?):(\d+)(?::(\d+))?\)$`)
	fileFrame = regexp.MustCompile(`^at (.*?):(\d+)(?::(\d+))?$`)
	atPrefix  = regexp.MustCompile(`^at\s+`)
)

// Locate returns the location of the first frame in stack. The first line is
// the error header and is skipped. Frames look like
//
//	at fn (/path/file.go:10:5)
//	at /path/file.go:10:5
//
// with the column optional. Anything unparseable degrades to an anonymous
// location rather than failing.
func Locate(stack string) telemetry.ErrorLocation {
	lines := strings.Split(stack, "\n")
	if len(lines) < 2 {
		return telemetry.ErrorLocation{Function: anonymous}
	}

	var frame string
	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "at") {
			frame = trimmed
			break
		}
	}
	if frame == "" {
		return telemetry.ErrorLocation{Function: anonymous}
	}

	if m := funcFrame.FindStringSubmatch(frame); m != nil {
		location := telemetry.ErrorLocation{
			Function: m[1],
			File:     m[2],
			Line:     atoi(m[3]),
		}
		if location.Function == "" {
			location.Function = anonymous
		}
		return location
	}

	if m := fileFrame.FindStringSubmatch(frame); m != nil {
		return telemetry.ErrorLocation{
			Function: anonymous,
			File:     m[1],
			Line:     atoi(m[2]),
		}
	}

	return telemetry.ErrorLocation{
		Function: anonymous,
		File:     atPrefix.ReplaceAllString(frame, ""),
	}
}

// Tracer is implemented by errors that carry their own stack trace text.
type Tracer interface {
	StackTrace() string
}

// Render returns the stack trace text for err. Errors implementing Tracer
// (anywhere in their chain) provide their own text. Otherwise the trace is
// the calling goroutine's stack, skip frames above Render's caller excluded.
func Render(err error, skip int) string {
	for e := err; e != nil; e = unwrap(e) {
		if t, ok := e.(Tracer); ok {
			if stack, ok := ownStack(t); ok {
				return stack
			}
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", TypeName(err), telemetry.ErrorMessage(err))

	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			fmt.Fprintf(&b, "\n    at %s (%s:%d)", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return b.String()
}

// TypeName reports the dynamic type of err without the pointer marker,
// e.g. "errors.errorString" or "fs.PathError".
func TypeName(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// ownStack calls t.StackTrace, reporting false if it panics.
func ownStack(t Tracer) (stack string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return t.StackTrace(), true
}

func unwrap(err error) (next error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
		}
	}()
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
