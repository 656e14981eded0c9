// Package config holds the product API configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/productcrud/pkg/config"
	"github.com/abgdnv/productcrud/pkg/config/configloader"
)

var (
	_ configloader.Validator = (*Config)(nil)
	_ configloader.Defaulter = (*Config)(nil)
)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Store      config.StoreConfig      `koanf:"store"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	NATS       config.NATSConfig       `koanf:"nats"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Products   ProductsConfig          `koanf:"products"`
}

// ProductsConfig tunes the product endpoints.
type ProductsConfig struct {
	// ListFailureNoContent answers a failed unpaginated listing with 204 instead of 500.
	ListFailureNoContent bool `koanf:"listFailureNoContent"`
}

// Defaults is the baseline every other configuration source overrides.
func (c *Config) Defaults() map[string]any {
	return map[string]any{
		"server.port":                       8080,
		"server.maxHeaderBytes":             1 << 20,
		"server.timeout.read":               "5s",
		"server.timeout.write":              "10s",
		"server.timeout.idle":               "60s",
		"server.timeout.readHeader":         "2s",
		"database.timeout":                  "5s",
		"store.driver":                      config.StoreDriverPostgres,
		"log.level":                         "info",
		"grpc.port":                         "50051",
		"nats.timeout":                      "5s",
		"nats.stream":                       "PRODUCTS",
		"telemetry.traces.otlphttp.timeout": "5s",
		"shutdown.timeout":                  "15s",
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Store.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.NATS.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString("\n--- Products ---\n")
	b.WriteString(fmt.Sprintf("  listFailureNoContent: %t\n", c.Products.ListFailureNoContent))
	return b.String()
}

// Validate checks if the configuration values are valid.
// The database section is only required by the PostgreSQL store.
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Store.UsesPostgres() {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.GRPC.Validate(); err != nil {
		return err
	}
	if err := c.NATS.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}
