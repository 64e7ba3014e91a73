package utils

import (
	"strings"
	"time"
)

const (
	layoutDate       = "2006-01-02"
	layoutDateTime   = "2006-01-02 15:04:05"
	layoutReportDate = "01-02-2006"
)

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ParseDate parses YYYY-MM-DD in local timezone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), time.Local)
}

// FormatDate formats time to YYYY-MM-DD in local timezone.
func FormatDate(t time.Time) string {
	return t.In(time.Local).Format(layoutDate)
}

// FormatDateTime formats time to "YYYY-MM-DD HH:MM:SS" in local timezone.
func FormatDateTime(t time.Time) string {
	return t.In(time.Local).Format(layoutDateTime)
}

// FormatDateTimePtr renders an optional timestamp, "-" when absent.
func FormatDateTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return FormatDateTime(*t)
}

// FormatReportDate formats time as MM-dd-yyyy in local timezone.
func FormatReportDate(t time.Time) string {
	return t.In(time.Local).Format(layoutReportDate)
}

// CompactDate formats time as yyyymmdd in local timezone.
func CompactDate(t time.Time) string {
	return t.In(time.Local).Format("20060102")
}
