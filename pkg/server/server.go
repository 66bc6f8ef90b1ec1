// Package server provides the HTTP status API of the light meter
// daemon. It exposes the current settings and the latest measurement
// over REST and streams completed passes to WebSocket clients.
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lightmeter-go/pkg/engine"
	"lightmeter-go/pkg/history"
	"lightmeter-go/pkg/log"
	"lightmeter-go/pkg/metrics"
	"lightmeter-go/pkg/telemetry"
)

// Config holds server configuration.
type Config struct {
	// Addr is the HTTP address to listen on (e.g., "127.0.0.1:7225").
	Addr string

	// Engine answers status queries and runs triggered passes.
	Engine *engine.Engine

	// History serves the /api/history endpoint when non-nil.
	History *history.Store
}

// Server is the HTTP status API.
type Server struct {
	engine  *engine.Engine
	history *history.Store

	httpServer *http.Server
	addr       string
	logger     *log.Logger

	wsUpgrader websocket.Upgrader
	wsClients  map[int64]*wsClient
	wsClientMu sync.RWMutex
	nextWSID   int64
}

// New creates a status server.
func New(cfg Config) *Server {
	s := &Server{
		engine:    cfg.Engine,
		history:   cfg.History,
		addr:      cfg.Addr,
		logger:    log.GetLogger("server"),
		wsClients: make(map[int64]*wsClient),
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return s
}

// Handler returns the server's routing table. Start serves it; tests can
// exercise the routes directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/measurement", s.handleMeasurement)
	mux.HandleFunc("/api/measure", s.handleMeasure)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start runs the server. It blocks until Stop is called or the listener
// fails.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}
	s.logger.Info("status API listening on %s", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down and disconnects all WebSocket clients.
func (s *Server) Stop() error {
	s.wsClientMu.Lock()
	for _, client := range s.wsClients {
		client.close()
	}
	s.wsClients = make(map[int64]*wsClient)
	s.wsClientMu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusResponse is the /api/status payload.
type statusResponse struct {
	ISO         int     `json:"iso"`
	Mode        string  `json:"mode"`
	Calibration float64 `json:"calibration"`

	LastMeasurement *lastSummary `json:"last_measurement,omitempty"`
}

type lastSummary struct {
	Time           time.Time `json:"time"`
	EV             float64   `json:"ev"`
	AggregateLux   float64   `json:"aggregate_lux"`
	Recommendation string    `json:"recommendation"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{
		ISO:         s.engine.ISO(),
		Mode:        s.engine.Mode().String(),
		Calibration: s.engine.Calibration(),
	}
	if m := s.engine.LastMeasurement(); m != nil {
		resp.LastMeasurement = &lastSummary{
			Time:           m.Time,
			EV:             m.EV,
			AggregateLux:   m.AggregateLux,
			Recommendation: m.Recommendation.Text,
		}
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleMeasurement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m := s.engine.LastMeasurement()
	if m == nil {
		http.Error(w, "No measurement available", http.StatusNotFound)
		return
	}
	s.writeJSON(w, telemetry.NewMessage(m))
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m, err := s.engine.RunMeasurement(r.Context())
	if err != nil {
		s.logger.Error("triggered measurement failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, telemetry.NewMessage(m))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "History not enabled", http.StatusNotFound)
		return
	}
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.history.Recent(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	s.writeJSON(w, entries)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprint(w, metrics.Gather())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode error: %v", err)
	}
}
