package config

import (
	"fmt"
	"strings"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// StoreConfig selects the product store implementation.
type StoreConfig struct {
	Driver string `koanf:"driver"`
}

// String returns a string representation of the store configuration.
func (c *StoreConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Store ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	return b.String()
}

// UsesPostgres reports whether the PostgreSQL store is selected.
func (c *StoreConfig) UsesPostgres() bool {
	return c.Driver == StoreDriverPostgres
}

func (c *StoreConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = StoreDriverPostgres
	}
	switch c.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
		return nil
	default:
		return fmt.Errorf("unknown store driver %q, expected %q or %q", c.Driver, StoreDriverPostgres, StoreDriverMemory)
	}
}
