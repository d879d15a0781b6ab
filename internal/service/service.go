// Package service wires the workbook loader, rainfall scraper, cache and
// recorder into the operations the API and CLI expose.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/a0pawar/DCA-dashboard/internal/cache"
	"github.com/a0pawar/DCA-dashboard/internal/config"
	"github.com/a0pawar/DCA-dashboard/internal/rainfall"
	"github.com/a0pawar/DCA-dashboard/internal/recorder"
	"github.com/a0pawar/DCA-dashboard/internal/workbook"
	"github.com/a0pawar/DCA-dashboard/pkg/models"
	"github.com/a0pawar/DCA-dashboard/pkg/utils"
)

const (
	pricesKey      = "prices:series"
	rainfallPrefix = "rainfall:"
)

// PriceLoader loads the weekly series. *workbook.Loader is the production
// implementation.
type PriceLoader interface {
	Load() (models.PriceSeries, error)
}

// RainFetcher fetches a period's rainfall records. *rainfall.Scraper is the
// production implementation.
type RainFetcher interface {
	Fetch(ctx context.Context, period models.Period) ([]models.RainfallRecord, error)
}

// Service memoizes the loader and scraper behind a shared TTL cache and
// mirrors every refresh into the recorder.
type Service struct {
	loader  PriceLoader
	fetcher RainFetcher
	cache   *cache.Cache
	rec     recorder.Recorder
	ttl     time.Duration
}

// New builds a Service from configuration.
func New(cfg *config.Config, rec recorder.Recorder) *Service {
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Service{
		loader: workbook.NewLoader(workbook.Options{
			Path:      cfg.Workbook.Path,
			Sheet:     cfg.Workbook.Sheet,
			AllowGaps: cfg.Workbook.AllowGaps,
		}),
		fetcher: rainfall.NewScraper(cfg.Rainfall.URL, time.Duration(cfg.Rainfall.TimeoutSec)*time.Second),
		cache:   cache.New(ttl),
		rec:     rec,
		ttl:     ttl,
	}
}

// NewWithDeps builds a Service from explicit collaborators. Tests use this.
func NewWithDeps(loader PriceLoader, fetcher RainFetcher, c *cache.Cache, rec recorder.Recorder, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if c == nil {
		c = cache.New(ttl)
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Service{loader: loader, fetcher: fetcher, cache: c, rec: rec, ttl: ttl}
}

// Prices returns the weekly series, loading the workbook on a cache miss.
func (s *Service) Prices() (models.PriceSeries, error) {
	v, err := s.cache.GetOrCompute(pricesKey, s.ttl, func() (any, error) {
		return s.loadAndRecord()
	})
	if err != nil {
		return nil, err
	}
	return v.(models.PriceSeries), nil
}

// RefreshPrices reloads the workbook unconditionally and replaces the cached
// series.
func (s *Service) RefreshPrices() (models.PriceSeries, error) {
	series, err := s.loadAndRecord()
	if err != nil {
		return nil, err
	}
	s.cache.SetWithTTL(pricesKey, series, s.ttl)
	return series, nil
}

func (s *Service) loadAndRecord() (models.PriceSeries, error) {
	series, err := s.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	snap := &recorder.PriceSnapshot{LoadedAt: utils.NowIST(), Series: series}
	if err := s.rec.RecordPrices(snap); err != nil {
		log.Printf("[ERROR] record price snapshot: %v", err)
	}
	return series, nil
}

// Rainfall returns the period's records, scraping on a cache miss.
func (s *Service) Rainfall(ctx context.Context, period models.Period) ([]models.RainfallRecord, error) {
	key := rainfallPrefix + string(period)
	v, err := s.cache.GetOrCompute(key, s.ttl, func() (any, error) {
		return s.fetchAndRecord(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.RainfallRecord), nil
}

// RefreshRainfall scrapes the period unconditionally and replaces the cached
// records.
func (s *Service) RefreshRainfall(ctx context.Context, period models.Period) ([]models.RainfallRecord, error) {
	records, err := s.fetchAndRecord(ctx, period)
	if err != nil {
		return nil, err
	}
	s.cache.SetWithTTL(rainfallPrefix+string(period), records, s.ttl)
	return records, nil
}

func (s *Service) fetchAndRecord(ctx context.Context, period models.Period) ([]models.RainfallRecord, error) {
	records, err := s.fetcher.Fetch(ctx, period)
	if err != nil {
		return nil, err
	}
	snap := &recorder.RainfallSnapshot{
		FetchedAt: utils.NowIST(),
		Period:    period,
		Records:   records,
	}
	if err := s.rec.RecordRainfall(snap); err != nil {
		log.Printf("[ERROR] record rainfall snapshot: %v", err)
	}
	return records, nil
}

// Invalidate drops every cached entry.
func (s *Service) Invalidate() {
	s.cache.Flush()
}

// TTL reports the memoization window.
func (s *Service) TTL() time.Duration { return s.ttl }

// Close releases the recorder.
func (s *Service) Close() error { return s.rec.Close() }
