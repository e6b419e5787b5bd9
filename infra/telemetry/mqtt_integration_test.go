package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/busdepot/core/model"
	infmqtt "github.com/kilianp07/busdepot/infra/mqtt"
)

func startMosquitto(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	conf := filepath.Join(t.TempDir(), "mosquitto.conf")
	if err := os.WriteFile(conf, []byte("listener 1883\nallow_anonymous true\n"), 0o644); err != nil {
		t.Fatalf("write mosquitto config: %v", err)
	}
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{"1883/tcp"},
		Files: []tc.ContainerFile{{
			HostFilePath:      conf,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestMQTTProvider_Broker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping broker test in short mode")
	}
	broker := startMosquitto(t)

	subCli, err := infmqtt.NewPahoClient(infmqtt.Config{Broker: broker, ClientID: "depot-it-sub"})
	if err != nil {
		t.Fatalf("subscriber: %v", err)
	}
	p, err := NewMQTTProvider(subCli, "depot/bus", 0)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	defer func() { _ = p.Close() }()

	pubCli, err := infmqtt.NewPahoClient(infmqtt.Config{Broker: broker, ClientID: "depot-it-pub"})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer pubCli.Disconnect()
	pub := infmqtt.NewTelemetryPublisher(pubCli, "depot/bus")
	for _, r := range []model.Reading{{BusID: "Bus_1", SoC: 35}, {BusID: "Bus_2", SoC: 80, RequiresMaintenance: true}} {
		if err := pub.PublishReading(r); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := p.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if len(got) == 2 {
			if got[0].BusID != "Bus_1" || got[1].SoC != 80 || !got[1].RequiresMaintenance {
				t.Fatalf("unexpected readings %+v", got)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("readings not received before deadline")
}
