// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"lightmeter-go/pkg/config"
	"lightmeter-go/pkg/engine"
	"lightmeter-go/pkg/history"
	"lightmeter-go/pkg/zone"
)

func TestStatusServerServesHistory(t *testing.T) {
	cfg := config.Default()
	cfg.History.Enable = true
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.Server.Enable = true

	eng, err := engine.New(engine.Config{Sampler: zone.NewUniformSampler(1000)})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()
	eng.OnMeasurement(func(m *engine.Measurement) {
		if err := store.Append(m); err != nil {
			t.Errorf("Append: %v", err)
		}
	})

	if _, err := eng.RunMeasurement(context.Background()); err != nil {
		t.Fatalf("RunMeasurement: %v", err)
	}

	srv := newStatusServer(&cfg, eng, store)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/history = %d: %s", rec.Code, rec.Body.String())
	}
	var entries []history.Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestStatusServerWithoutHistory(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Enable = true

	eng, err := engine.New(engine.Config{Sampler: zone.NewUniformSampler(1000)})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	srv := newStatusServer(&cfg, eng, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/history = %d, want 404", rec.Code)
	}
}
