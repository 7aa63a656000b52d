package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FolderStampLayout names one export folder per capture (yyyy-MM-dd-HH-mm-ss).
const FolderStampLayout = "2006-01-02-15-04-05"

// Epoch is the placeholder timestamp for records the exporter leaves undated.
var Epoch = time.Unix(0, 0).UTC()

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp accepts the ISO-8601 variants found in export JSON and
// plain unix seconds. ok is false for empty or unrecognized input.
func ParseTimestamp(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), true
		}
	}
	if seconds, err := parseInt64Strict(trimmed); err == nil && seconds > 0 {
		return time.Unix(seconds, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimestampOr returns fallback when raw cannot be parsed.
func ParseTimestampOr(raw string, fallback time.Time) time.Time {
	if parsed, ok := ParseTimestamp(raw); ok {
		return parsed
	}
	return fallback
}

// FormatFolderStamp renders t in loc (UTC when loc is nil).
func FormatFolderStamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(FolderStampLayout)
}

func parseInt64Strict(s string) (int64, error) {
	var result int64
	if len(s) == 0 {
		return 0, errors.New("empty string")
	}
	for index := 0; index < len(s); index++ {
		ch := s[index]
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("non-digit %q", ch)
		}
		result = result*10 + int64(ch-'0')
	}
	return result, nil
}
