package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/busdepot/core/model"
	"github.com/kilianp07/busdepot/infra/logger"
	infmqtt "github.com/kilianp07/busdepot/infra/mqtt"
)

// Subscriber is the part of the MQTT client used by MQTTProvider.
type Subscriber interface {
	Subscribe(topic string, handler infmqtt.MessageHandler) error
	Disconnect()
}

// MQTTConfig configures the push telemetry provider.
type MQTTConfig struct {
	MQTT infmqtt.Config `json:"mqtt"`
	// TopicPrefix is the root of per-bus state topics, e.g. "depot/bus".
	TopicPrefix string `json:"topic_prefix"`
	// MaxAgeSeconds drops readings that were not refreshed in time. Zero
	// keeps every reading.
	MaxAgeSeconds int `json:"max_age_seconds"`
}

type entry struct {
	reading model.Reading
	seen    time.Time
}

// MQTTProvider keeps the latest reading pushed by each bus on
// <prefix>/<bus_id>. Buses are reported in the order they were first seen.
type MQTTProvider struct {
	sub    Subscriber
	maxAge time.Duration
	log    logger.Logger
	now    func() time.Time

	mu     sync.RWMutex
	order  []string
	latest map[string]entry

	received prometheus.Counter
	invalid  prometheus.Counter
}

// NewMQTTProvider subscribes to the state topics through sub.
func NewMQTTProvider(sub Subscriber, prefix string, maxAge time.Duration) (*MQTTProvider, error) {
	if prefix == "" {
		prefix = "depot/bus"
	}
	p := &MQTTProvider{
		sub:    sub,
		maxAge: maxAge,
		log:    logger.New("telemetry"),
		now:    time.Now,
		latest: make(map[string]entry),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_messages_total",
			Help: "Number of telemetry messages accepted",
		}),
		invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_invalid_messages_total",
			Help: "Number of telemetry messages rejected",
		}),
	}
	topic := strings.TrimSuffix(prefix, "/") + "/+"
	if err := sub.Subscribe(topic, p.onMessage); err != nil {
		return nil, err
	}
	return p, nil
}

// Collectors exposes the provider counters for registration.
func (p *MQTTProvider) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.received, p.invalid}
}

func (p *MQTTProvider) onMessage(topic string, payload []byte) {
	if err := p.process(payload, topic); err != nil {
		p.invalid.Inc()
		p.log.Errorf("telemetry decode: %v", err)
		return
	}
	p.received.Inc()
}

func (p *MQTTProvider) process(payload []byte, topic string) error {
	var msg struct {
		BusID               string   `json:"bus_id"`
		SoC                 *float64 `json:"state_of_charge"`
		RequiresMaintenance bool     `json:"requires_maintenance"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	if msg.BusID == "" {
		msg.BusID = extractID(topic)
	}
	if msg.BusID == "" {
		return fmt.Errorf("reading without bus id on %q", topic)
	}
	if msg.SoC == nil {
		return fmt.Errorf("reading for %s without state_of_charge", msg.BusID)
	}
	reading := model.Reading{BusID: msg.BusID, SoC: *msg.SoC, RequiresMaintenance: msg.RequiresMaintenance}
	if err := reading.Validate(); err != nil {
		return fmt.Errorf("topic %q: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.latest[msg.BusID]; !ok {
		p.order = append(p.order, msg.BusID)
	}
	p.latest[msg.BusID] = entry{
		reading: reading,
		seen:    p.now(),
	}
	return nil
}

func extractID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return ""
}

// Snapshot implements telemetry.Provider.
func (p *MQTTProvider) Snapshot(ctx context.Context) ([]model.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := p.now()
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.Reading, 0, len(p.order))
	for _, id := range p.order {
		e := p.latest[id]
		if p.maxAge > 0 && now.Sub(e.seen) > p.maxAge {
			continue
		}
		out = append(out, e.reading)
	}
	return out, nil
}

// Close disconnects from the broker.
func (p *MQTTProvider) Close() error {
	p.sub.Disconnect()
	return nil
}
