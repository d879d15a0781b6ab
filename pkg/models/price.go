// Package models defines the shared data types for the DCA dashboard:
// long-format commodity price series, date windows, week-over-week momentum
// rows, and rainfall deviation records.
package models

import (
	"sort"
	"time"
)

// Commodities is the fixed 22-item vocabulary tracked by the DCA workbook.
// Order matters for the dashboard's default dropdown selection, not for data
// correctness.
var Commodities = []string{
	"Rice", "Wheat", "Atta(wheat)", "Gram Dal", "Tur/Arhar Dal", "Urad Dal",
	"Moong Dal", "Masoor Dal", "Ground Nut Oil", "Mustard Oil", "Vanaspati",
	"Soya Oil", "Sunflower Oil", "Palm Oil", "Potato", "Onion", "Tomato",
	"Sugar", "Gur", "Milk", "Tea", "Salt",
}

// IsCommodity reports whether name belongs to the fixed vocabulary.
func IsCommodity(name string) bool {
	for _, c := range Commodities {
		if c == name {
			return true
		}
	}
	return false
}

// PricePoint is one row of the long-format series: one (date, commodity)
// pair with a single price value.
type PricePoint struct {
	Date      time.Time `json:"date"`
	Commodity string    `json:"commodity"`
	Price     float64   `json:"price"`
}

// PriceSeries is a long-format price series ordered by (date, commodity).
// For a given commodity the dates are unique, weekly (Friday-anchored) and
// strictly increasing; no weekend dates and no missing prices survive loading.
type PriceSeries []PricePoint

// Sort orders the series by (date, commodity) ascending. Commodity order is
// plain lexical string order, not vocabulary order.
func (s PriceSeries) Sort() {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].Date.Equal(s[j].Date) {
			return s[i].Date.Before(s[j].Date)
		}
		return s[i].Commodity < s[j].Commodity
	})
}

// Bounds returns the earliest and latest dates in the series.
// ok is false for an empty series.
func (s PriceSeries) Bounds() (min, max time.Time, ok bool) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max = s[0].Date, s[0].Date
	for _, p := range s[1:] {
		if p.Date.Before(min) {
			min = p.Date
		}
		if p.Date.After(max) {
			max = p.Date
		}
	}
	return min, max, true
}

// Commodity returns the sub-series for one commodity, in series order.
func (s PriceSeries) Commodity(name string) PriceSeries {
	var out PriceSeries
	for _, p := range s {
		if p.Commodity == name {
			out = append(out, p)
		}
	}
	return out
}

// CommodityNames returns the distinct commodities present, sorted lexically.
func (s PriceSeries) CommodityNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range s {
		if !seen[p.Commodity] {
			seen[p.Commodity] = true
			names = append(names, p.Commodity)
		}
	}
	sort.Strings(names)
	return names
}

// DateWindow is an inclusive [Start, End] date range.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether Start <= End.
func (w DateWindow) Valid() bool {
	return !w.Start.After(w.End)
}

// Contains reports whether t falls inside the window, inclusive.
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Clamp restricts the window to [min, max].
func (w DateWindow) Clamp(min, max time.Time) DateWindow {
	out := w
	if out.Start.Before(min) {
		out.Start = min
	}
	if out.End.After(max) {
		out.End = max
	}
	return out
}

// PctChangeRow holds the trailing four week-over-week percentage changes for
// one commodity, oldest first. A nil entry means insufficient history.
type PctChangeRow struct {
	Commodity     string   `json:"commodity"`
	ThreeWeeksAgo *float64 `json:"three_weeks_ago"`
	TwoWeeksAgo   *float64 `json:"two_weeks_ago"`
	PreviousWeek  *float64 `json:"previous_week"`
	LatestWeek    *float64 `json:"latest_week"`

	// Dates are the anchor dates of this row's own change points, oldest
	// first, zero time where the change is nil. Exposed so that rows whose
	// histories have gaps are visibly misaligned with the shared headers.
	Dates [4]time.Time `json:"dates"`
}

// PctChangeTable is the momentum table rendered next to the price chart.
// HeaderDates carry the dd-mm-yy calendar dates shown under the four column
// labels; they come from the first (lexically) commodity's change points.
type PctChangeTable struct {
	HeaderDates [4]string      `json:"header_dates"`
	Rows        []PctChangeRow `json:"rows"`
}
