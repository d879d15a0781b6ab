// Package pricing filters, rebases and summarizes the weekly commodity
// series produced by the workbook loader.
package pricing

import (
	"math"
	"sort"
	"time"

	"github.com/a0pawar/DCA-dashboard/pkg/models"
	"github.com/a0pawar/DCA-dashboard/pkg/utils"
)

// momentumPoints is the trailing window used for week-over-week changes:
// five weekly observations yield four changes.
const momentumPoints = 5

// Filter returns the points matching the commodity set inside the window,
// both bounds inclusive. The window is clamped to the series' own date range,
// so an out-of-range request degrades to an empty result rather than an
// error. A nil or empty commodity slice matches nothing.
func Filter(series models.PriceSeries, commodities []string, window models.DateWindow) models.PriceSeries {
	if len(series) == 0 || len(commodities) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(commodities))
	for _, c := range commodities {
		wanted[c] = true
	}

	min, max, ok := series.Bounds()
	if !ok {
		return nil
	}
	window = window.Clamp(min, max)

	var out models.PriceSeries
	for _, p := range series {
		if !wanted[p.Commodity] {
			continue
		}
		if !window.Contains(p.Date) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DefaultWindow is the window applied when a request names no dates: three
// months back from the latest observation.
func DefaultWindow(series models.PriceSeries) models.DateWindow {
	if len(series) == 0 {
		return models.DateWindow{}
	}
	_, end, ok := series.Bounds()
	if !ok {
		return models.DateWindow{}
	}
	return models.DateWindow{Start: end.AddDate(0, -3, 0), End: end}
}

// Normalize rebases each commodity's sub-series to 100 at its first point in
// the input, preserving relative movement. Commodities whose first price is
// zero are dropped rather than divided.
func Normalize(series models.PriceSeries) models.PriceSeries {
	if len(series) == 0 {
		return nil
	}
	// Input is sorted by (date, commodity), so the first occurrence of each
	// commodity is its earliest observation.
	base := make(map[string]float64, len(models.Commodities))
	for _, p := range series {
		if _, ok := base[p.Commodity]; !ok {
			base[p.Commodity] = p.Price
		}
	}

	var out models.PriceSeries
	for _, p := range series {
		b := base[p.Commodity]
		if b == 0 {
			continue
		}
		out = append(out, models.PricePoint{
			Date:      p.Date,
			Commodity: p.Commodity,
			Price:     round2(p.Price / b * 100),
		})
	}
	return out
}

// Momentum computes the four most recent week-over-week percentage changes
// for each commodity in the input, oldest first. Each change is rounded to
// two decimals. A commodity with fewer than five observations fills only its
// latest slots; one with fewer than two observations, having no computable
// change, is omitted entirely.
//
// Header dates come from the lexically first commodity present; rows also
// carry their own per-slot dates, since a short history shifts a row's slots
// relative to the headers.
func Momentum(series models.PriceSeries) models.PctChangeTable {
	table := models.PctChangeTable{}
	if len(series) == 0 {
		return table
	}

	names := series.CommodityNames()
	sort.Strings(names)

	for _, name := range names {
		pts := series.Commodity(name)
		if len(pts) > momentumPoints {
			pts = pts[len(pts)-momentumPoints:]
		}
		if len(pts) < 2 {
			continue
		}

		row := models.PctChangeRow{Commodity: name}
		changes := make([]*float64, 0, momentumPoints-1)
		dates := make([]time.Time, 0, momentumPoints-1)
		for i := 1; i < len(pts); i++ {
			prev := pts[i-1].Price
			if prev == 0 {
				changes = append(changes, nil)
				dates = append(dates, pts[i].Date)
				continue
			}
			v := round2((pts[i].Price - prev) / prev * 100)
			changes = append(changes, &v)
			dates = append(dates, pts[i].Date)
		}

		// Right-align into the four labeled slots.
		slots := [4]*float64{}
		slotDates := [4]time.Time{}
		offset := 4 - len(changes)
		for i, c := range changes {
			slots[offset+i] = c
			slotDates[offset+i] = dates[i]
		}
		row.ThreeWeeksAgo = slots[0]
		row.TwoWeeksAgo = slots[1]
		row.PreviousWeek = slots[2]
		row.LatestWeek = slots[3]
		row.Dates = slotDates

		if row.ThreeWeeksAgo == nil && row.TwoWeeksAgo == nil &&
			row.PreviousWeek == nil && row.LatestWeek == nil {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) > 0 {
		for i, d := range table.Rows[0].Dates {
			if !d.IsZero() {
				table.HeaderDates[i] = utils.FormatDateShort(d)
			}
		}
	}
	return table
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
