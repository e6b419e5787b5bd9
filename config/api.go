package config

import "fmt"

// APIConfig controls the HTTP API.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
	// Token enables bearer authentication when set.
	Token string `json:"token"`
}

func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}

func (c APIConfig) Validate() error {
	if c.Enabled && c.Address == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}
