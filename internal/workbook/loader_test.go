package workbook

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/a0pawar/DCA-dashboard/pkg/models"
)

// fixtureOptions controls the synthetic workbook written by writeFixture.
type fixtureOptions struct {
	// blankCells maps (commodity index, date index) to true to leave a
	// price cell empty.
	blankCells map[[2]int]bool

	// renameRow swaps the commodity label at the given block index.
	renameRow int
	renameTo  string

	// truncate writes only the header row, leaving the block absent.
	truncate bool
}

// writeFixture builds a workbook whose fixed block mirrors the published DCA
// layout: header dates from column C, 22 commodity rows at sheet rows 56-77
// with the name in column B. Commodity i on date j is priced 10*(i+1)+j.
func writeFixture(t *testing.T, path string, dates []time.Time, opts fixtureOptions) {
	t.Helper()

	f := excelize.NewFile()
	idx, err := f.NewSheet(DefaultSheet)
	if err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatalf("delete default sheet: %v", err)
	}

	for j, d := range dates {
		cell, _ := excelize.CoordinatesToCellName(firstDateCol+1+j, 1)
		if err := f.SetCellValue(DefaultSheet, cell, d.Format("2006-01-02")); err != nil {
			t.Fatalf("set header cell: %v", err)
		}
	}

	if !opts.truncate {
		for i, name := range models.Commodities {
			if opts.renameTo != "" && i == opts.renameRow {
				name = opts.renameTo
			}
			rowNum := blockFirstRow + 1 + i
			cell, _ := excelize.CoordinatesToCellName(nameCol+1, rowNum)
			if err := f.SetCellValue(DefaultSheet, cell, name); err != nil {
				t.Fatalf("set name cell: %v", err)
			}
			for j := range dates {
				if opts.blankCells[[2]int{i, j}] {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(firstDateCol+1+j, rowNum)
				price := float64(10*(i+1) + j)
				if err := f.SetCellValue(DefaultSheet, cell, price); err != nil {
					t.Fatalf("set price cell: %v", err)
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLoadWeeklyResample(t *testing.T) {
	// Full business week Mon 01 - Fri 05 Apr 2024, plus a Saturday that must
	// be dropped before resampling.
	dates := []time.Time{
		day(2024, time.April, 1),
		day(2024, time.April, 2),
		day(2024, time.April, 3),
		day(2024, time.April, 4),
		day(2024, time.April, 5),
		day(2024, time.April, 6), // Saturday
	}
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	writeFixture(t, path, dates, fixtureOptions{})

	series, err := NewLoader(Options{Path: path}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(series) != len(models.Commodities) {
		t.Fatalf("expected %d points, got %d", len(models.Commodities), len(series))
	}
	friday := day(2024, time.April, 5)
	for _, p := range series {
		if !p.Date.Equal(friday) {
			t.Fatalf("point for %s dated %s, want %s", p.Commodity, p.Date, friday)
		}
	}

	// Commodity i averages 10*(i+1) + (0+1+2+3+4)/5 over the week; the
	// Saturday value (j=5) must not contribute.
	for i, name := range models.Commodities {
		pts := series.Commodity(name)
		if len(pts) != 1 {
			t.Fatalf("%s: %d points, want 1", name, len(pts))
		}
		want := float64(10*(i+1)) + 2
		if math.Abs(pts[0].Price-want) > 1e-9 {
			t.Errorf("%s: price %.4f, want %.4f", name, pts[0].Price, want)
		}
	}
}

func TestLoadSorted(t *testing.T) {
	dates := []time.Time{
		day(2024, time.April, 5),
		day(2024, time.April, 12),
	}
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	writeFixture(t, path, dates, fixtureOptions{})

	series, err := NewLoader(Options{Path: path}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if cur.Date.Before(prev.Date) {
			t.Fatalf("dates out of order at %d: %s after %s", i, cur.Date, prev.Date)
		}
		if cur.Date.Equal(prev.Date) && cur.Commodity < prev.Commodity {
			t.Fatalf("commodities out of order at %d: %q after %q", i, cur.Commodity, prev.Commodity)
		}
	}
}

func TestLoadStrictDropsGappedDate(t *testing.T) {
	dates := []time.Time{
		day(2024, time.April, 5),
		day(2024, time.April, 12),
	}
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	writeFixture(t, path, dates, fixtureOptions{
		blankCells: map[[2]int]bool{{3, 1}: true},
	})

	series, err := NewLoader(Options{Path: path}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// The second date has one missing price, so the whole date goes.
	if len(series) != len(models.Commodities) {
		t.Fatalf("expected %d points, got %d", len(models.Commodities), len(series))
	}
	second := day(2024, time.April, 12)
	for _, p := range series {
		if p.Date.Equal(second) {
			t.Fatalf("gapped date %s survived strict load", second)
		}
	}
}

func TestLoadAllowGapsKeepsPartialDate(t *testing.T) {
	dates := []time.Time{
		day(2024, time.April, 5),
		day(2024, time.April, 12),
	}
	gapped := models.Commodities[3]
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	writeFixture(t, path, dates, fixtureOptions{
		blankCells: map[[2]int]bool{{3, 1}: true},
	})

	series, err := NewLoader(Options{Path: path, AllowGaps: true}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := 2*len(models.Commodities) - 1; len(series) != want {
		t.Fatalf("expected %d points, got %d", want, len(series))
	}
	second := day(2024, time.April, 12)
	for _, p := range series {
		if p.Date.Equal(second) && p.Commodity == gapped {
			t.Fatalf("%s should be absent on %s", gapped, second)
		}
	}
}

func TestLoadRejectsUnknownCommodity(t *testing.T) {
	dates := []time.Time{day(2024, time.April, 5)}
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	writeFixture(t, path, dates, fixtureOptions{renameRow: 0, renameTo: "Quinoa"})

	_, err := NewLoader(Options{Path: path}).Load()
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestLoadRejectsShortSheet(t *testing.T) {
	dates := []time.Time{day(2024, time.April, 5)}
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	writeFixture(t, path, dates, fixtureOptions{truncate: true})

	_, err := NewLoader(Options{Path: path}).Load()
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestParseDateLabel(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-04-05", day(2024, time.April, 5), true},
		{"05-04-2024", day(2024, time.April, 5), true},
		{"05-Apr-24", day(2024, time.April, 5), true},
		{"45387", day(2024, time.April, 5), true}, // Excel serial
		{"", time.Time{}, false},
		{"total", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := parseDateLabel(tc.in)
		if ok != tc.ok {
			t.Errorf("parseDateLabel(%q) ok=%v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("parseDateLabel(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
