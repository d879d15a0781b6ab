// Package workbook loads the DCA price workbook and reshapes it into the
// canonical long-format weekly series.
//
// The source worksheet is date-major across columns: a fixed block of 22
// commodity rows, one date per column, with the date labels in the sheet's
// header row. Loading transposes that block, drops incomplete dates and
// weekends, resamples to week-ending-Friday averages and melts the result to
// one row per (date, commodity).
package workbook

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/a0pawar/DCA-dashboard/pkg/models"
	"github.com/a0pawar/DCA-dashboard/pkg/utils"
)

// DefaultSheet is the worksheet holding the consolidated daily series.
const DefaultSheet = "State_Consolidated_TimeSeries"

// Fixed block geometry. GetRows includes the header row at index 0, so the
// commodity block occupies row indices 55..76.
const (
	blockFirstRow = 55
	blockRows     = 22
	nameCol       = 1 // commodity name column inside the block
	firstDateCol  = 2 // first price column; header row carries the date label
)

// FormatError reports a workbook whose fixed region does not match the
// expected shape or commodity set. It is fatal: there is no partial load.
type FormatError struct {
	Sheet  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("workbook sheet %q: %s", e.Sheet, e.Reason)
}

// Options configures a Loader.
type Options struct {
	// Path of the workbook file.
	Path string

	// Sheet name; DefaultSheet when empty.
	Sheet string

	// AllowGaps keeps a date whose row is missing some commodity prices,
	// dropping only the absent points. The default (false) reproduces the
	// strict policy: one gap removes the whole date.
	AllowGaps bool
}

// Loader reads the price workbook. Load is deterministic for a given file and
// performs no retries; callers memoize the result through the cache service.
type Loader struct {
	opts Options
}

// NewLoader creates a loader for the given options.
func NewLoader(opts Options) *Loader {
	if opts.Sheet == "" {
		opts.Sheet = DefaultSheet
	}
	return &Loader{opts: opts}
}

// Load reads the fixed block and returns the weekly long-format series,
// sorted by (date, commodity).
func (l *Loader) Load() (models.PriceSeries, error) {
	f, err := excelize.OpenFile(l.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", l.opts.Path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(l.opts.Sheet)
	if err != nil {
		return nil, &FormatError{Sheet: l.opts.Sheet, Reason: err.Error()}
	}
	if len(rows) < blockFirstRow+blockRows {
		return nil, &FormatError{
			Sheet:  l.opts.Sheet,
			Reason: fmt.Sprintf("expected at least %d rows, found %d", blockFirstRow+blockRows, len(rows)),
		}
	}

	header := rows[0]
	block := rows[blockFirstRow : blockFirstRow+blockRows]

	names, err := l.commodityNames(block)
	if err != nil {
		return nil, err
	}

	// Weekly buckets: Friday date → commodity → running mean.
	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]map[string]*bucket)

	dateCols := 0
	for col := firstDateCol; col < len(header); col++ {
		date, ok := parseDateLabel(header[col])
		if !ok {
			continue
		}
		dateCols++

		if utils.IsWeekend(date) {
			continue
		}

		prices := make(map[string]float64, blockRows)
		complete := true
		for i, row := range block {
			v, ok := cellFloat(row, col)
			if !ok {
				complete = false
				continue
			}
			prices[names[i]] = v
		}

		// Strict policy: a single gap removes the whole date.
		if !complete && !l.opts.AllowGaps {
			continue
		}

		friday := utils.WeekEndingFriday(date)
		byCommodity, ok := buckets[friday]
		if !ok {
			byCommodity = make(map[string]*bucket, blockRows)
			buckets[friday] = byCommodity
		}
		for name, v := range prices {
			b, ok := byCommodity[name]
			if !ok {
				b = &bucket{}
				byCommodity[name] = b
			}
			b.sum += v
			b.count++
		}
	}

	if dateCols == 0 {
		return nil, &FormatError{Sheet: l.opts.Sheet, Reason: "no parsable date columns in header row"}
	}

	var series models.PriceSeries
	for friday, byCommodity := range buckets {
		for name, b := range byCommodity {
			series = append(series, models.PricePoint{
				Date:      friday,
				Commodity: name,
				Price:     b.sum / float64(b.count),
			})
		}
	}
	series.Sort()
	return series, nil
}

// commodityNames extracts and validates the block's commodity labels against
// the fixed vocabulary.
func (l *Loader) commodityNames(block [][]string) ([]string, error) {
	names := make([]string, len(block))
	seen := make(map[string]bool, len(block))
	for i, row := range block {
		if len(row) <= nameCol {
			return nil, &FormatError{
				Sheet:  l.opts.Sheet,
				Reason: fmt.Sprintf("commodity row %d has no name column", blockFirstRow+i+1),
			}
		}
		name := strings.TrimSpace(row[nameCol])
		if !models.IsCommodity(name) {
			return nil, &FormatError{
				Sheet:  l.opts.Sheet,
				Reason: fmt.Sprintf("unexpected commodity %q at row %d", name, blockFirstRow+i+1),
			}
		}
		if seen[name] {
			return nil, &FormatError{
				Sheet:  l.opts.Sheet,
				Reason: fmt.Sprintf("duplicate commodity %q", name),
			}
		}
		seen[name] = true
		names[i] = name
	}
	for _, want := range models.Commodities {
		if !seen[want] {
			return nil, &FormatError{
				Sheet:  l.opts.Sheet,
				Reason: fmt.Sprintf("commodity %q absent from block", want),
			}
		}
	}
	return names, nil
}

// dateLayouts covers the label formats DCA has used across workbook
// revisions, plus the formats excelize renders date cells with.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"01-02-06",
	"1/2/06",
	"01/02/2006",
	"02-Jan-06",
	"02-Jan-2006",
	"2006-01-02 15:04:05",
}

// parseDateLabel parses a header cell into a calendar date. Numeric cells are
// treated as Excel serial dates (days since 1899-12-30).
func parseDateLabel(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
		t := epoch.AddDate(0, 0, int(serial))
		return t, true
	}
	return time.Time{}, false
}

// cellFloat reads row[col] as a price. Blank, dash and NA cells are missing.
func cellFloat(row []string, col int) (float64, bool) {
	if col >= len(row) {
		return 0, false
	}
	s := strings.TrimSpace(row[col])
	switch s {
	case "", "-", "NA", "NR", "N.A.":
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
