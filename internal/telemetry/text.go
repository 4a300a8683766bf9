package telemetry

import (
	"fmt"
	"reflect"
)

// ErrorMessage returns err.Error() without letting a panicking Error method
// escape. Like fmt, a nil pointer receiver renders as "<nil>".
func ErrorMessage(err error) string {
	return callText(err, func() string { return err.Error() })
}

// StringerText is ErrorMessage for fmt.Stringer values.
func StringerText(s fmt.Stringer) string {
	return callText(s, func() string { return s.String() })
}

func callText(v any, call func() string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
				text = "<nil>"
				return
			}
			text = fmt.Sprintf("%%!v(PANIC=%v)", r)
		}
	}()
	return call()
}
