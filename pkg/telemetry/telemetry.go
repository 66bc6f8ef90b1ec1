// MQTT telemetry for the light meter daemon
//
// Publishes every completed measurement pass as a JSON message and
// accepts remote "measure" triggers on a command topic.
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"lightmeter-go/pkg/engine"
	"lightmeter-go/pkg/log"
	"lightmeter-go/pkg/meter"
)

// Config wires a Publisher to a broker.
type Config struct {
	Broker           string
	ClientID         string
	MeasurementTopic string
	CommandTopic     string
}

// ZoneSample is one grid cell of a published measurement.
type ZoneSample struct {
	Row     int     `json:"row"`
	Col     int     `json:"col"`
	Code    int     `json:"code"`
	Voltage float64 `json:"voltage"`
	Lux     float64 `json:"lux"`
	Valid   bool    `json:"valid"`
}

// Message is the JSON payload published after each pass.
type Message struct {
	Time           time.Time    `json:"time"`
	Mode           string       `json:"mode"`
	ISO            int          `json:"iso"`
	AggregateLux   float64      `json:"aggregate_lux"`
	SampleCount    float64      `json:"sample_count"`
	EV             float64      `json:"ev"`
	Recommendation string       `json:"recommendation"`
	Zones          []ZoneSample `json:"zones"`
}

// NewMessage flattens a measurement into its wire form.
func NewMessage(m *engine.Measurement) Message {
	msg := Message{
		Time:           m.Time,
		Mode:           m.Mode.String(),
		ISO:            m.ISO,
		AggregateLux:   m.AggregateLux,
		SampleCount:    m.SampleCount,
		EV:             m.EV,
		Recommendation: m.Recommendation.Text,
		Zones:          make([]ZoneSample, 0, meter.GridRows*meter.GridCols),
	}
	for row := 0; row < meter.GridRows; row++ {
		for col := 0; col < meter.GridCols; col++ {
			r := m.Grid[row][col]
			msg.Zones = append(msg.Zones, ZoneSample{
				Row:     row + 1,
				Col:     col + 1,
				Code:    r.Code,
				Voltage: r.Voltage,
				Lux:     r.Lux,
				Valid:   r.Valid,
			})
		}
	}
	return msg
}

// Publisher connects the engine to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	cfg    Config
	logger *log.Logger
}

// New creates a Publisher. onMeasure, when non-nil, runs whenever a
// "measure" command arrives on the command topic.
func New(cfg Config, onMeasure func()) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("telemetry: broker is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "lightmeterd"
	}

	p := &Publisher{cfg: cfg, logger: log.GetLogger("telemetry")}

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		p.logger.Info("connected to broker %s", cfg.Broker)
		if cfg.CommandTopic == "" || onMeasure == nil {
			return
		}
		handler := func(client mqtt.Client, msg mqtt.Message) {
			cmd := strings.TrimSpace(string(msg.Payload()))
			if cmd != "measure" {
				p.logger.Warn("ignoring unknown command %q on %s", cmd, msg.Topic())
				return
			}
			onMeasure()
		}
		if token := client.Subscribe(cfg.CommandTopic, 1, handler); token.Wait() && token.Error() != nil {
			p.logger.Error("subscribe %s: %v", cfg.CommandTopic, token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		p.logger.Warn("connection to broker lost: %v", err)
	})

	p.client = mqtt.NewClient(opts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", cfg.Broker, token.Error())
	}
	return p, nil
}

// PublishMeasurement sends one completed pass to the measurement topic.
func (p *Publisher) PublishMeasurement(m *engine.Measurement) error {
	data, err := json.Marshal(NewMessage(m))
	if err != nil {
		return fmt.Errorf("telemetry: marshal: %w", err)
	}
	if token := p.client.Publish(p.cfg.MeasurementTopic, 1, false, data); token.Wait() && token.Error() != nil {
		return fmt.Errorf("telemetry: publish: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
