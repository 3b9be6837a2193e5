// Package config loads the YAML runtime configuration for the flowmesh
// daemon.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// AgentConfig describes one simulated router and the collectors its
// exporter sends to.
type AgentConfig struct {
	Name       string   `yaml:"name"`
	Interfaces []string `yaml:"interfaces"`
	Peers      []string `yaml:"peers"`
	Collectors []string `yaml:"collectors"`
}

// ExporterConfig carries the timing knobs shared by every agent exporter.
// Durations are Go duration strings ("300s", "5m").
type ExporterConfig struct {
	FlowTimeout     string `yaml:"flow_timeout"`
	ExportInterval  string `yaml:"export_interval"`
	TemplateRefresh string `yaml:"template_refresh"`
	HistorySize     int    `yaml:"history_size"`
}

// CollectorConfig configures the IPFIX listener.
type CollectorConfig struct {
	Addr      string `yaml:"addr"`
	Port      int    `yaml:"port"`
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	Format    string `yaml:"format"`
	Transport string `yaml:"transport"`
}

// SimulatorConfig controls the traffic generators.
type SimulatorConfig struct {
	TickInterval string `yaml:"tick_interval"`
	DataFlows    int    `yaml:"data_flows"`
}

// APIConfig configures the HTTP query server.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the top-level configuration for the daemon.
type Config struct {
	Agents    []AgentConfig   `yaml:"agents"`
	Exporter  ExporterConfig  `yaml:"exporter"`
	Collector CollectorConfig `yaml:"collector"`
	Simulator SimulatorConfig `yaml:"simulator"`
	API       APIConfig       `yaml:"api"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for _, name := range []string{c.Exporter.FlowTimeout, c.Exporter.ExportInterval,
		c.Exporter.TemplateRefresh, c.Simulator.TickInterval} {
		if name == "" {
			continue
		}
		if _, err := time.ParseDuration(name); err != nil {
			return fmt.Errorf("invalid duration %q: %w", name, err)
		}
	}
	for _, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent with empty name")
		}
	}
	return nil
}

// Duration parses a duration string, falling back to def when the string is
// empty. Call validate (via LoadConfig) first; invalid strings fall back too.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
