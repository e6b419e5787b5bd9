package e2e

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient is a small helper around the official InfluxDB v2 client
// used by the E2E tests to read back what the service wrote.
type InfluxClient struct {
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient creates a new client for the given parameters. It assumes
// the server is already running and reachable.
func NewInfluxClient(url, org, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{client: c, query: c.QueryAPI(org)}
}

// Count runs a Flux query and returns the number of records it yields.
func (c *InfluxClient) Count(ctx context.Context, flux string) (int, error) {
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer func() { _ = res.Close() }()
	n := 0
	for res.Next() {
		n++
	}
	return n, res.Err()
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }
