package vigilant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
)

// stdCapture tracks which logger currently owns the standard library log
// output and the settings in place before any logger took it over.
var stdCapture struct {
	mu     sync.Mutex
	owner  *Logger
	output io.Writer
	flags  int
}

// EnableAutocapture sends everything written through the standard library
// log package to the logger at INFO level. Timestamps are left to the
// logger, so log flags are cleared while enabled.
//
// Only one logger owns the log output at a time: enabling on a second
// logger takes it over, and the first logger's DisableAutocapture becomes a
// no-op.
func (l *Logger) EnableAutocapture() {
	if l == nil {
		return
	}

	stdCapture.mu.Lock()
	defer stdCapture.mu.Unlock()

	if stdCapture.owner == l {
		return
	}
	if stdCapture.owner == nil {
		stdCapture.output = log.Writer()
		stdCapture.flags = log.Flags()
	}
	stdCapture.owner = l

	log.SetOutput(l.Writer(LevelInfo))
	log.SetFlags(0)
}

// DisableAutocapture restores the standard logger to the state it had
// before any logger enabled autocapture. It does nothing unless l is the
// current owner.
func (l *Logger) DisableAutocapture() {
	if l == nil {
		return
	}

	stdCapture.mu.Lock()
	defer stdCapture.mu.Unlock()

	if stdCapture.owner != l {
		return
	}
	log.SetOutput(stdCapture.output)
	log.SetFlags(stdCapture.flags)
	stdCapture.owner = nil
	stdCapture.output = nil
}

// Writer returns an io.Writer that captures each written line as a message
// at level. Empty lines are skipped.
func (l *Logger) Writer(level Level) io.Writer {
	return &lineWriter{logger: l, level: level}
}

type lineWriter struct {
	logger *Logger
	level  Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\r\n"), []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		w.logger.log(w.level, string(line), nil, nil)
	}
	return len(p), nil
}

// Print captures args as one INFO message, console style: strings are kept
// as they are, errors become their message and other values are encoded as
// JSON. Arguments are separated by spaces.
func (l *Logger) Print(args ...any) {
	l.log(LevelInfo, formatArgs(args), nil, nil)
}

// PrintError is Print at ERROR level. The first error among args is
// attached as the "error" attribute.
func (l *Logger) PrintError(args ...any) {
	var err error
	for _, arg := range args {
		if e, ok := arg.(error); ok {
			err = e
			break
		}
	}
	l.log(LevelError, formatArgs(args), nil, err)
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = stringify(arg)
	}
	return strings.Join(parts, " ")
}

func stringify(arg any) string {
	switch v := arg.(type) {
	case nil:
		return "null"
	case string:
		return v
	case error:
		return telemetry.ErrorMessage(v)
	case fmt.Stringer:
		return telemetry.StringerText(v)
	}

	encoded, err := marshal(arg)
	if err != nil {
		return fmt.Sprint(arg)
	}
	return string(encoded)
}

// marshal is json.Marshal with panics from user MarshalJSON methods turned
// into errors.
func marshal(v any) (encoded []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marshal panicked: %v", r)
		}
	}()
	return json.Marshal(v)
}
