package models

import (
	"fmt"
	"strings"
)

// Period selects which rainfall aggregation window to scrape.
type Period string

// Rainfall periods understood by the IMD page, with their query codes.
const (
	PeriodDaily      Period = "daily"      // code D
	PeriodWeekly     Period = "weekly"     // code W
	PeriodMonthly    Period = "monthly"    // code M
	PeriodCumulative Period = "cumulative" // code C
)

// Code returns the single-letter query code for the period.
func (p Period) Code() string {
	switch p {
	case PeriodDaily:
		return "D"
	case PeriodWeekly:
		return "W"
	case PeriodMonthly:
		return "M"
	case PeriodCumulative:
		return "C"
	}
	return ""
}

// AllPeriods lists every valid period, in display order.
var AllPeriods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodCumulative}

// ParsePeriod resolves a period from its name or single-letter code.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "d":
		return PeriodDaily, nil
	case "weekly", "w":
		return PeriodWeekly, nil
	case "monthly", "m":
		return PeriodMonthly, nil
	case "cumulative", "c":
		return PeriodCumulative, nil
	}
	return "", fmt.Errorf("unknown rainfall period %q (want daily, weekly, monthly or cumulative)", s)
}

// RainfallRecord is one state's rainfall figures for a period. State names are
// canonicalized to match the geographic boundary dataset's key field exactly.
// Nil fields mean the figure was absent from the source tooltip text.
type RainfallRecord struct {
	State        string   `json:"state"`
	ActualMM     *float64 `json:"actual_mm"`
	NormalMM     *float64 `json:"normal_mm"`
	DeviationPct *int     `json:"deviation_pct"`
}
