// lightmeterd drives a 4x5-zone TTL camera light meter: a 5x4 photodiode
// grid read through an analog multiplexer and a 12-bit SPI ADC, converted
// to lux and reduced to an exposure recommendation.
//
// Usage:
//
//	lightmeterd [options]
//
// Options:
//
//	-config string  Configuration file (YAML)
//	-addr string    Status API address (overrides config)
//	-dev            Use a simulated sensor board instead of real hardware
//
// Examples:
//
//	# Run against real hardware with the default wiring
//	lightmeterd
//
//	# Run with a config file and the status API on another port
//	lightmeterd -config lightmeter.yaml -addr :8080
//
//	# Develop without the sensor board attached
//	lightmeterd -dev
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"lightmeter-go/pkg/config"
	"lightmeter-go/pkg/console"
	"lightmeter-go/pkg/engine"
	"lightmeter-go/pkg/history"
	"lightmeter-go/pkg/log"
	"lightmeter-go/pkg/meter"
	"lightmeter-go/pkg/server"
	"lightmeter-go/pkg/telemetry"
	"lightmeter-go/pkg/zone"
)

func main() {
	configFile := flag.String("config", "", "Configuration file (YAML)")
	addr := flag.String("addr", "", "Status API address (overrides config)")
	dev := flag.Bool("dev", false, "Use a simulated sensor board")
	flag.Parse()

	// Configure the root logger before any component grabs its own:
	// GetLogger copies the root's settings, writer included.
	root := log.New("lightmeter")
	if err := log.ConfigureFromEnv(root); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.SetDefaultLogger(root)
	logger := log.GetLogger("main")

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger.Info("configuration loaded from %s", *configFile)
	}
	if *addr != "" {
		cfg.Server.Enable = true
		cfg.Server.Address = *addr
	}

	sampler, closer, err := buildSampler(&cfg, *dev)
	if err != nil {
		logger.Error("sensor setup failed: %v", err)
		os.Exit(1)
	}

	table, err := cfg.CalibrationTable()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	if table != nil {
		logger.Info("converter calibration table active")
	}

	eng, err := engine.New(engine.Config{
		Sampler:     sampler,
		Table:       table,
		Mode:        meter.ModeFromName(cfg.Meter.Mode),
		ISO:         cfg.Meter.ISO,
		Calibration: cfg.Meter.Calibration,
	})
	if err != nil {
		logger.Error("engine setup failed: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *history.Store
	if cfg.History.Enable {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		defer store.Close()
		eng.OnMeasurement(func(m *engine.Measurement) {
			if err := store.Append(m); err != nil {
				logger.Error("history append failed: %v", err)
			}
		})
		logger.Info("measurement history at %s", cfg.History.Path)
	}

	if cfg.Telemetry.Enable {
		pub, err := telemetry.New(telemetry.Config{
			Broker:           cfg.Telemetry.Broker,
			ClientID:         cfg.Telemetry.ClientID,
			MeasurementTopic: cfg.Telemetry.MeasurementTopic,
			CommandTopic:     cfg.Telemetry.CommandTopic,
		}, func() {
			if _, err := eng.RunMeasurement(ctx); err != nil {
				logger.Error("remote measurement failed: %v", err)
			}
		})
		if err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		defer pub.Close()
		eng.OnMeasurement(func(m *engine.Measurement) {
			if err := pub.PublishMeasurement(m); err != nil {
				logger.Error("telemetry publish failed: %v", err)
			}
		})
	}

	var srv *server.Server
	if cfg.Server.Enable {
		srv = newStatusServer(&cfg, eng, store)
		eng.OnMeasurement(srv.Broadcast)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("status API failed: %v", err)
			}
		}()
	}

	if cfg.Schedule != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.Schedule, func() {
			if _, err := eng.RunMeasurement(ctx); err != nil {
				logger.Error("scheduled measurement failed: %v", err)
			}
		})
		if err != nil {
			logger.Error("invalid schedule %q: %v", cfg.Schedule, err)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
		logger.Info("scheduled measurements: %s", cfg.Schedule)
	}

	// The console's reset command restarts the process the way the
	// firmware restarted the chip.
	cons := console.New(eng, os.Stdin, os.Stdout, func() {
		cancel()
		restart(logger)
	})
	consoleDone := make(chan error, 1)
	go func() { consoleDone <- cons.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received %v, shutting down", sig)
	case err := <-consoleDone:
		if err != nil && err != context.Canceled {
			logger.Error("console terminated: %v", err)
		} else {
			logger.Info("console closed, shutting down")
		}
	}

	cancel()
	if srv != nil {
		if err := srv.Stop(); err != nil {
			logger.Error("status API shutdown: %v", err)
		}
	}
	if err := eng.Close(); err != nil {
		logger.Error("sensor shutdown: %v", err)
	}
	if closer != nil {
		if err := closer(); err != nil {
			logger.Error("adc shutdown: %v", err)
		}
	}
}

// newStatusServer wires the status API to the engine and the history
// store, so /api/history serves stored passes whenever history is on.
func newStatusServer(cfg *config.Config, eng *engine.Engine, store *history.Store) *server.Server {
	return server.New(server.Config{
		Addr:    cfg.Server.Address,
		Engine:  eng,
		History: store,
	})
}

// buildSampler constructs the acquisition chain: the real multiplexer and
// SPI ADC, or a simulated board for development.
func buildSampler(cfg *config.Config, dev bool) (zone.Sampler, func() error, error) {
	if dev {
		// Mid-scale codes so every zone reads as daylight.
		return zone.NewUniformSampler(2000), nil, nil
	}
	adc, err := zone.NewMCP3208(cfg.Device.SPIPort)
	if err != nil {
		return nil, nil, err
	}
	sampler, err := zone.NewMuxSampler(cfg.MuxConfig(), adc)
	if err != nil {
		adc.Close()
		return nil, nil, err
	}
	return sampler, adc.Close, nil
}

// restart replaces the process with a fresh copy of itself.
func restart(logger *log.Logger) {
	exe, err := os.Executable()
	if err != nil {
		logger.Error("restart failed: %v", err)
		os.Exit(1)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		logger.Error("restart failed: %v", err)
		os.Exit(1)
	}
}
