package config

import (
	"fmt"
	"log"
	"strings"
	"time"
)

const defaultShutdownTimeout = 15 * time.Second

type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the ShutdownConfig.
func (c *ShutdownConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Shutdown ---\n")
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

// Validate falls back to the default timeout when none is configured.
func (c *ShutdownConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative: %s", c.Timeout)
	}
	if c.Timeout == 0 {
		log.Println("Using default value for shutdown.timeout")
		c.Timeout = defaultShutdownTimeout
	}
	return nil
}
