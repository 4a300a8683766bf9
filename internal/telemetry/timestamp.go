package telemetry

import "time"

const timestampLayout = "2006-01-02T15:04:05.000"

// FormatTimestamp renders t in UTC with six fractional digits. The clock is
// read at millisecond resolution; the last three digits are always zero.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(timestampLayout) + "000Z"
}

// Now returns the current wall clock formatted by FormatTimestamp.
func Now() string {
	return FormatTimestamp(time.Now())
}
