package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kilianp07/busdepot/core/model"
)

// ReadingPublisher sends bus readings to the telemetry topic tree.
type ReadingPublisher interface {
	PublishReading(r model.Reading) error
}

// TelemetryPublisher publishes readings as JSON on <prefix>/<bus_id>.
type TelemetryPublisher struct {
	client *PahoClient
	prefix string
}

// NewTelemetryPublisher wraps client for the given topic prefix.
func NewTelemetryPublisher(client *PahoClient, prefix string) *TelemetryPublisher {
	return &TelemetryPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

// PublishReading implements ReadingPublisher.
func (p *TelemetryPublisher) PublishReading(r model.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return p.client.Publish(ReadingTopic(p.prefix, r.BusID), payload)
}

// ReadingTopic returns the topic readings of busID are published on.
func ReadingTopic(prefix, busID string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(prefix, "/"), busID)
}

// MockPublisher records published readings. It is used in tests.
type MockPublisher struct {
	mu       sync.Mutex
	Readings []model.Reading
	FailIDs  map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailIDs: make(map[string]bool)}
}

// PublishReading records the reading or fails for configured bus IDs.
func (m *MockPublisher) PublishReading(r model.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[r.BusID] {
		return fmt.Errorf("publish failed for %s", r.BusID)
	}
	m.Readings = append(m.Readings, r)
	return nil
}
