package service

import "time"

// TimestampLayout is the station's datetime format: 24h clock, no zone, UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses a station-supplied datetime. ok is false for anything
// that is not exactly TimestampLayout or names an impossible date; callers
// then fall back to server time.
func ParseTimestamp(s string) (time.Time, bool) {
	// time.Parse tolerates single-digit hours and trailing fractional
	// seconds; the station format has neither.
	if len(s) != len(TimestampLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// resolveTimestamp picks the record timestamp: the parsed datetime when it is
// valid, otherwise now.
func resolveTimestamp(raw string, now time.Time) time.Time {
	if raw != "" {
		if t, ok := ParseTimestamp(raw); ok {
			return t
		}
	}
	return now.UTC()
}
