package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
agents:
  - name: r1
    interfaces: [ge-0/0/0, ge-0/0/1]
    peers: [r2]
    collectors: ["127.0.0.1:4739"]
  - name: r2
    interfaces: [ge-0/0/0]
    peers: [r1]
    collectors: ["127.0.0.1:4739"]
exporter:
  flow_timeout: 300s
  export_interval: 5s
  template_refresh: 10m
  history_size: 500
collector:
  addr: 127.0.0.1
  port: 4739
  workers: 2
  format: json
  transport: file
simulator:
  tick_interval: 1s
  data_flows: 4
api:
  addr: 127.0.0.1:8080
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowmesh.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "r1", cfg.Agents[0].Name)
	assert.Equal(t, []string{"ge-0/0/0", "ge-0/0/1"}, cfg.Agents[0].Interfaces)
	assert.Equal(t, []string{"127.0.0.1:4739"}, cfg.Agents[0].Collectors)
	assert.Equal(t, 4739, cfg.Collector.Port)
	assert.Equal(t, "json", cfg.Collector.Format)
	assert.Equal(t, 500, cfg.Exporter.HistorySize)
	assert.Equal(t, "127.0.0.1:8080", cfg.API.Addr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadConfigBadDuration(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "exporter:\n  flow_timeout: soon\n"))
	assert.Error(t, err)
}

func TestLoadConfigEmptyAgentName(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "agents:\n  - interfaces: [eth0]\n"))
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 300*time.Second, Duration("", 300*time.Second))
	assert.Equal(t, 5*time.Minute, Duration("5m", time.Second))
	assert.Equal(t, time.Second, Duration("bogus", time.Second))
}
