// Package utils holds small shared helpers: IST-aware time utilities and the
// weekly bucketing used by the price pipeline.
package utils

import (
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30). DCA publishes prices
// and IMD publishes rainfall on IST calendar dates.
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: fixed zone if the tz database is not available.
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// NowIST returns the current time in IST.
func NowIST() time.Time {
	return time.Now().In(IST)
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WeekEndingFriday returns the Friday that closes the week containing t.
// A Friday maps to itself; every other weekday maps to the next Friday.
func WeekEndingFriday(t time.Time) time.Time {
	offset := (int(time.Friday) - int(t.Weekday()) + 7) % 7
	d := t.AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// ParseDate parses a date string in "2006-01-02" format as a UTC calendar date.
func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse("2006-01-02", dateStr)
}

// FormatDate formats t as "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatDateShort formats t as "dd-mm-yy", the style used for the momentum
// table's column headers.
func FormatDateShort(t time.Time) string {
	return t.Format("02-01-06")
}

// FormatDateTimeIST formats t as "2006-01-02 15:04:05 IST".
func FormatDateTimeIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02 15:04:05 IST")
}
