// Package recorder persists refresh snapshots so price and rainfall history
// can be audited after the source page or workbook changes.
package recorder

import (
	"time"

	"github.com/a0pawar/DCA-dashboard/pkg/models"
)

// PriceSnapshot holds one refreshed weekly series.
type PriceSnapshot struct {
	LoadedAt time.Time
	Series   models.PriceSeries
}

// RainfallSnapshot holds one refreshed rainfall record set.
type RainfallSnapshot struct {
	FetchedAt time.Time
	Period    models.Period
	Records   []models.RainfallRecord
}

// Recorder persists historical snapshots for analysis.
type Recorder interface {
	RecordPrices(snap *PriceSnapshot) error
	RecordRainfall(snap *RainfallSnapshot) error
	Close() error
}
