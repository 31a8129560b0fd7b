// Package config holds the configuration of the restaurant service.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // timezones resolve without system zoneinfo

	"github.com/abgdnv/restaurant/internal/service"
	"github.com/abgdnv/restaurant/pkg/config"
	"github.com/abgdnv/restaurant/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Cache      config.CacheConfig      `koanf:"cache"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Orders     OrdersConfig            `koanf:"orders"`
}

// OrdersConfig tunes the order lifecycle and listing.
type OrdersConfig struct {
	// Timezone is the IANA zone used to read calendar dates in filters.
	Timezone           string `koanf:"timezone"`
	EnforceTransitions bool   `koanf:"enforceTransitions"`
	// FilterMode is "store" to push filters down to the database or "memory" to filter in the service.
	FilterMode string `koanf:"filterMode"`
}

// Location returns the configured time zone, UTC when none is set.
func (c *OrdersConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Service returns the order service settings.
func (c *OrdersConfig) Service() service.OrdersConfig {
	mode := service.FilterMode(c.FilterMode)
	if mode == "" {
		mode = service.FilterInStore
	}
	return service.OrdersConfig{EnforceTransitions: c.EnforceTransitions, FilterMode: mode}
}

func (c *OrdersConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Orders ---\n")
	b.WriteString(fmt.Sprintf("  timezone: %s\n", c.Timezone))
	b.WriteString(fmt.Sprintf("  enforceTransitions: %t\n", c.EnforceTransitions))
	b.WriteString(fmt.Sprintf("  filterMode: %s\n", c.FilterMode))
	return b.String()
}

func (c *OrdersConfig) Validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid orders timezone %q: %w", c.Timezone, err)
	}
	switch service.FilterMode(c.FilterMode) {
	case "", service.FilterInStore, service.FilterInMemory:
		return nil
	default:
		return fmt.Errorf("unknown orders filter mode: %s", c.FilterMode)
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Cache.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Orders.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Database,
		&c.Log,
		&c.PProf,
		&c.Nats,
		&c.Cache,
		&c.Telemetry,
		&c.GRPC,
		&c.Shutdown,
		&c.Orders,
	}
	if c.Nats.Enabled {
		validators = append(validators, &c.Resilience)
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
