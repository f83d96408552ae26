package codec

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DisplayLayout is the locale display form used for timestamps.
const DisplayLayout = "1/2/2006, 3:04:05 PM"

// FormatTimestamp renders a millisecond timestamp string in local time.
// Empty or non-numeric input yields "".
func FormatTimestamp(value string) string {
	return FormatTimestampIn(value, time.Local)
}

// FormatTimestampIn is FormatTimestamp for an explicit location.
func FormatTimestampIn(value string, loc *time.Location) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return time.UnixMilli(int64(f)).In(loc).Format(DisplayLayout)
}

// FormatMillis renders ms in local time; zero yields "".
func FormatMillis(ms int64) string {
	return FormatMillisIn(ms, time.Local)
}

// FormatMillisIn is FormatMillis for an explicit location.
func FormatMillisIn(ms int64, loc *time.Location) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).In(loc).Format(DisplayLayout)
}
