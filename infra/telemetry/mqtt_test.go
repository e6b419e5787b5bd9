package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/busdepot/core/model"
	infmqtt "github.com/kilianp07/busdepot/infra/mqtt"
)

type fakeSubscriber struct {
	topic        string
	handler      infmqtt.MessageHandler
	disconnected bool
}

func (f *fakeSubscriber) Subscribe(topic string, h infmqtt.MessageHandler) error {
	f.topic = topic
	f.handler = h
	return nil
}

func (f *fakeSubscriber) Disconnect() { f.disconnected = true }

func TestMQTTProvider_LatestPerBusInFirstSeenOrder(t *testing.T) {
	sub := &fakeSubscriber{}
	p, err := NewMQTTProvider(sub, "depot/bus/", 0)
	require.NoError(t, err)
	assert.Equal(t, "depot/bus/+", sub.topic)

	sub.handler("depot/bus/B", []byte(`{"state_of_charge":20}`))
	sub.handler("depot/bus/A", []byte(`{"state_of_charge":50,"requires_maintenance":true}`))
	sub.handler("depot/bus/B", []byte(`{"state_of_charge":25}`))
	sub.handler("depot/bus/x", []byte(`{"bus_id":"C","state_of_charge":100}`))

	got, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Reading{
		{BusID: "B", SoC: 25},
		{BusID: "A", SoC: 50, RequiresMaintenance: true},
		{BusID: "C", SoC: 100},
	}, got)
	assert.Equal(t, 4.0, testutil.ToFloat64(p.received))

	require.NoError(t, p.Close())
	assert.True(t, sub.disconnected)
}

func TestMQTTProvider_RejectsInvalid(t *testing.T) {
	sub := &fakeSubscriber{}
	p, err := NewMQTTProvider(sub, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "depot/bus/+", sub.topic)

	sub.handler("depot/bus/A", []byte(`not json`))
	sub.handler("depot/bus/A", []byte(`{"requires_maintenance":true}`))
	sub.handler("depot/bus/A", []byte(`{"state_of_charge":130}`))
	sub.handler("depot/bus/A", []byte(`{"state_of_charge":-1}`))
	sub.handler("depot/bus/", []byte(`{"state_of_charge":40}`))
	got, _ := p.Snapshot(context.Background())
	assert.Empty(t, got)
	assert.Equal(t, 5.0, testutil.ToFloat64(p.invalid))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.received))
}

func TestMQTTProvider_MaxAge(t *testing.T) {
	sub := &fakeSubscriber{}
	p, err := NewMQTTProvider(sub, "depot/bus", time.Minute)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	sub.handler("depot/bus/A", []byte(`{"state_of_charge":40}`))
	now = now.Add(30 * time.Second)
	sub.handler("depot/bus/B", []byte(`{"state_of_charge":60}`))
	now = now.Add(45 * time.Second)

	got, _ := p.Snapshot(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].BusID)
}

func TestExtractID(t *testing.T) {
	assert.Equal(t, "Bus_42", extractID("depot/bus/Bus_42"))
	assert.Equal(t, "solo", extractID("solo"))
}
