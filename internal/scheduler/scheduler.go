// Package scheduler runs the periodic cache warm-up: reload the workbook,
// re-scrape every rainfall period, and tell connected clients fresh data is
// available.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/a0pawar/DCA-dashboard/internal/service"
	"github.com/a0pawar/DCA-dashboard/pkg/models"
)

// Broadcaster pushes refresh notifications to connected clients. The API's
// websocket hub implements it.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Scheduler manages the refresh cron task.
type Scheduler struct {
	Cron    *cron.Cron
	Service *service.Service
	Hub     Broadcaster
	Ctx     context.Context
}

// NewScheduler creates a new Scheduler. hub may be nil when no clients need
// notifying (CLI use).
func NewScheduler(ctx context.Context, svc *service.Service, hub Broadcaster) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(),
		Service: svc,
		Hub:     hub,
		Ctx:     ctx,
	}
}

// Register adds the refresh task on the given cron expression.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the refresh task immediately (manual trigger).
func (s *Scheduler) RunNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	log.Println("[INFO] running refresh task")

	if series, err := s.Service.RefreshPrices(); err != nil {
		log.Printf("[ERROR] refresh prices: %v", err)
	} else {
		log.Printf("[INFO] refreshed %d price points", len(series))
		s.notify("prices_refreshed", map[string]any{"points": len(series)})
	}

	for _, period := range models.AllPeriods {
		ctx, cancel := context.WithTimeout(s.Ctx, time.Minute)
		records, err := s.Service.RefreshRainfall(ctx, period)
		cancel()
		if err != nil {
			log.Printf("[ERROR] refresh rainfall %s: %v", period, err)
			continue
		}
		log.Printf("[INFO] refreshed rainfall %s: %d states", period, len(records))
		s.notify("rainfall_refreshed", map[string]any{
			"period": string(period),
			"states": len(records),
		})
	}
}

func (s *Scheduler) notify(event string, payload any) {
	if s.Hub == nil {
		return
	}
	s.Hub.Broadcast(event, payload)
}
