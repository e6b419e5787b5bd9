package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/busdepot/config"
	"github.com/kilianp07/busdepot/core/telemetry"
	"github.com/kilianp07/busdepot/infra/logger"
	"github.com/kilianp07/busdepot/infra/mqtt"
	inftelemetry "github.com/kilianp07/busdepot/infra/telemetry"
)

type simulateOptions struct {
	buses    int
	seed     int64
	interval time.Duration
	prefix   string
	once     bool
}

func init() {
	rootCmd.AddCommand(newSimulateCmd())
}

func newSimulateCmd() *cobra.Command {
	opts := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Publish synthetic bus telemetry to the MQTT broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts)
		},
		SilenceUsage: true,
	}
	f := cmd.Flags()
	f.IntVar(&opts.buses, "buses", 30, "number of simulated buses")
	f.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "seed of the synthetic telemetry")
	f.DurationVar(&opts.interval, "interval", 5*time.Second, "publish period")
	f.StringVar(&opts.prefix, "prefix", "depot/bus", "topic prefix, readings go to <prefix>/<bus_id>")
	f.BoolVar(&opts.once, "once", false, "publish a single snapshot and exit")
	return cmd
}

func runSimulate(cmd *cobra.Command, opts simulateOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mqttCfg := cfg.MQTT
	if mqttCfg.ClientID != "" {
		mqttCfg.ClientID += "-simulator"
	} else {
		mqttCfg.ClientID = fmt.Sprintf("simulator-%d", time.Now().UnixNano())
	}
	client, err := mqtt.NewPahoClient(mqttCfg)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer client.Disconnect()

	provider, err := inftelemetry.NewRandomProvider(inftelemetry.RandomConfig{Buses: opts.buses, Seed: opts.seed})
	if err != nil {
		return err
	}
	return simulate(ctx, provider, mqtt.NewTelemetryPublisher(client, opts.prefix), opts.interval, opts.once, logger.New("simulator"))
}

// simulate publishes one snapshot per interval until ctx is done.
func simulate(ctx context.Context, p telemetry.Provider, pub mqtt.ReadingPublisher, interval time.Duration, once bool, log logger.Logger) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		readings, err := p.Snapshot(ctx)
		if err != nil {
			return err
		}
		failed := 0
		for _, r := range readings {
			if err := pub.PublishReading(r); err != nil {
				failed++
				log.Errorf("publish %s: %v", r.BusID, err)
			}
		}
		log.Infof("published %d readings (%d failed)", len(readings)-failed, failed)
		if once {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
