package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent chatstream configuration stored as
// config.toml in the .chatstream/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Server  ServerConfig `toml:"server"`
	Events  EventsConfig `toml:"events"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// chat backend (e.g. chatstream chat). APITarget is a full URL
// (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
	Token     string `toml:"token,omitempty"`
}

// ServerConfig holds dev server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig holds turn telemetry settings. When Enabled is true,
// completed turns are published to the configured Kafka topic.
type EventsConfig struct {
	Enabled bool     `toml:"enabled,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.token": {
		get: func(c *Config) string { return c.Client.Token },
		set: func(c *Config, v string) error { c.Client.Token = v; return nil },
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"events.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Events.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for events.enabled: %w", err)
			}
			c.Events.Enabled = b
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = splitBrokers(v)
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

// splitBrokers parses a comma-separated broker list, trimming whitespace
// and dropping empty entries.
func splitBrokers(v string) []string {
	var brokers []string
	for _, b := range strings.Split(v, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
