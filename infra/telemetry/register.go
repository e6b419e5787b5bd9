package telemetry

import (
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/busdepot/core/factory"
	"github.com/kilianp07/busdepot/core/model"
	coretelemetry "github.com/kilianp07/busdepot/core/telemetry"
	infmqtt "github.com/kilianp07/busdepot/infra/mqtt"
)

// init registers built-in telemetry providers.
func init() {
	_ = coretelemetry.RegisterProvider("random", func(conf map[string]any) (coretelemetry.Provider, error) {
		var c RandomConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRandomProvider(c)
	})

	_ = coretelemetry.RegisterProvider("file", func(conf map[string]any) (coretelemetry.Provider, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewFileProvider(c.Path)
	})

	_ = coretelemetry.RegisterProvider("static", func(conf map[string]any) (coretelemetry.Provider, error) {
		var c struct {
			Buses []model.Reading `json:"buses"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewStaticProvider(c.Buses), nil
	})

	_ = coretelemetry.RegisterProvider("mqtt", func(conf map[string]any) (coretelemetry.Provider, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.MQTT.ClientID != "" {
			c.MQTT.ClientID += "-telemetry"
		} else {
			c.MQTT.ClientID = "telemetry-" + uuid.NewString()
		}
		cli, err := infmqtt.NewPahoClient(c.MQTT)
		if err != nil {
			return nil, err
		}
		p, err := NewMQTTProvider(cli, c.TopicPrefix, time.Duration(c.MaxAgeSeconds)*time.Second)
		if err != nil {
			cli.Disconnect()
			return nil, err
		}
		return p, nil
	})
}
