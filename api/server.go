// Package api provides the HTTP REST API server for the DCA dashboard.
//
// It exposes endpoints for the weekly commodity price series, week-over-week
// momentum tables, state-wise rainfall deviation, and WebSocket refresh
// notifications.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/a0pawar/DCA-dashboard/internal/config"
	"github.com/a0pawar/DCA-dashboard/internal/pricing"
	"github.com/a0pawar/DCA-dashboard/internal/service"
	"github.com/a0pawar/DCA-dashboard/pkg/models"
	"github.com/a0pawar/DCA-dashboard/pkg/utils"
)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	svc     *service.Service
	wsHub   *WSHub
	version string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, svc *service.Service, version string) *Server {
	srv := &Server{
		cfg:     cfg,
		svc:     svc,
		wsHub:   NewWSHub(),
		version: version,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub so the scheduler can broadcast refreshes.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Price series
		r.Get("/commodities", s.handleCommodities)
		r.Get("/prices", s.handlePrices)
		r.Get("/prices/momentum", s.handleMomentum)

		// Rainfall
		r.Get("/rainfall/{period}", s.handleRainfall)

		// Manual cache refresh
		r.Post("/refresh", s.handleRefresh)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PricesResponse is the payload for GET /api/v1/prices.
type PricesResponse struct {
	Window     models.DateWindow  `json:"window"`
	Normalized bool               `json:"normalized"`
	Points     models.PriceSeries `json:"points"`
}

// RainfallResponse is the payload for GET /api/v1/rainfall/{period}.
type RainfallResponse struct {
	Period    string                  `json:"period"`
	FetchedAt string                  `json:"fetched_at"`
	Records   []models.RainfallRecord `json:"records"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    "ok",
			"version":   s.version,
			"cache_ttl": s.svc.TTL().String(),
			"time_ist":  utils.FormatDateTimeIST(utils.NowIST()),
		},
	})
}

func (s *Server) handleCommodities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    models.Commodities,
	})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	series, err := s.svc.Prices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	commodities, window, err := parseSelection(r, series)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filtered := pricing.Filter(series, commodities, window)

	normalize := isTruthy(r.URL.Query().Get("normalize"))
	if normalize {
		filtered = pricing.Normalize(filtered)
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: PricesResponse{
			Window:     window,
			Normalized: normalize,
			Points:     filtered,
		},
	})
}

func (s *Server) handleMomentum(w http.ResponseWriter, r *http.Request) {
	series, err := s.svc.Prices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	commodities, window, err := parseSelection(r, series)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filtered := pricing.Filter(series, commodities, window)
	table := pricing.Momentum(filtered)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    table,
	})
}

func (s *Server) handleRainfall(w http.ResponseWriter, r *http.Request) {
	period, err := models.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	records, err := s.svc.Rainfall(ctx, period)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: RainfallResponse{
			Period:    string(period),
			FetchedAt: utils.FormatDateTimeIST(utils.NowIST()),
			Records:   records,
		},
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.svc.Invalidate()

	series, err := s.svc.Prices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.wsHub.Broadcast("prices_refreshed", map[string]interface{}{
		"points": len(series),
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]interface{}{"points": len(series)},
	})
}

// ============================================================
// Helpers
// ============================================================

// parseSelection reads the commodities/from/to query parameters. Commodity
// defaults to the full vocabulary; the window defaults to three months back
// from the latest observation. Unknown commodity names simply match nothing,
// mirroring how an absent commodity drops out of the momentum table.
func parseSelection(r *http.Request, series models.PriceSeries) ([]string, models.DateWindow, error) {
	q := r.URL.Query()

	commodities := models.Commodities
	if raw := q.Get("commodities"); raw != "" {
		commodities = nil
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				commodities = append(commodities, name)
			}
		}
	}

	window := pricing.DefaultWindow(series)
	if raw := q.Get("from"); raw != "" {
		t, err := utils.ParseDate(raw)
		if err != nil {
			return nil, models.DateWindow{}, errInvalidDate("from", raw)
		}
		window.Start = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := utils.ParseDate(raw)
		if err != nil {
			return nil, models.DateWindow{}, errInvalidDate("to", raw)
		}
		window.End = t
	}
	if !window.Valid() {
		return nil, models.DateWindow{}, errWindowInverted
	}
	return commodities, window, nil
}

var errWindowInverted = errors.New("from must not be after to")

func errInvalidDate(field, v string) error {
	return fmt.Errorf("invalid %s date %q; use YYYY-MM-DD", field, v)
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends an event to all connected WebSocket clients.
func (h *WSHub) Broadcast(event string, payload interface{}) {
	select {
	case h.broadcast <- WSMessage{Type: event, Data: payload}:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
