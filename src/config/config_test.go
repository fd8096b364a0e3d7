package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"request-monitor/src/helpers"
	"request-monitor/src/models"
)

const minimalYAML = `
name: test
host: 127.0.0.1
port: 8090
storage:
  db_type: sqlite
  db_path: ":memory:"
pages:
  - name: requests
    kind: timeseries
    series:
      - name: incoming
    queries:
      - SELECT 1
`

func TestDefaultConfigIsValid(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "request-monitor", cfg.Name)
	for _, name := range []string{"requests", "queue_time", "latency", "throughput", "errors", "users", "summary"} {
		_, ok := cfg.Page(name)
		assert.True(t, ok, "missing page %s", name)
	}

	page, _ := cfg.Page("requests")
	assert.Len(t, page.Queries, 2)
	assert.Equal(t, "incoming", page.Series[0].Name)
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 1, cfg.DefaultHours)
	assert.Equal(t, 20, cfg.Aggregation.DensityThreshold)
	assert.Equal(t, 5, cfg.Aggregation.TickStep)
	assert.Equal(t, "lexical", cfg.Aggregation.SortMode)
	assert.Equal(t, 60, cfg.Refresh.IntervalSeconds)
	assert.Equal(t, 60, cfg.Refresh.OffHoursIntervalSeconds)

	page, ok := cfg.Page("requests")
	require.True(t, ok)
	assert.Equal(t, "requests", page.Title)
	assert.Equal(t, "incoming", page.Series[0].Label)
	assert.Equal(t, models.AxisLeft, page.Series[0].Axis)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Parse([]byte(minimalYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"low port", func(c *Config) { c.Port = 80 }},
		{"bad grpc port", func(c *Config) { c.GrpcPort = 70000 }},
		{"unknown db", func(c *Config) { c.Storage.DBType = "oracle" }},
		{"postgres without dsn", func(c *Config) { c.Storage.DBType = "postgres" }},
		{"no pages", func(c *Config) { c.Pages = nil }},
		{"duplicate page", func(c *Config) { c.Pages = append(c.Pages, c.Pages[0]) }},
		{"unknown kind", func(c *Config) { c.Pages[0].Kind = "gauge" }},
		{"no queries", func(c *Config) { c.Pages[0].Queries = nil }},
		{"timeseries without series", func(c *Config) { c.Pages[0].Series = nil }},
		{"bad axis", func(c *Config) { c.Pages[0].Series[0].Axis = "top" }},
		{"bad sort mode", func(c *Config) { c.Aggregation.SortMode = "random" }},
		{"bad page sort mode", func(c *Config) { c.Pages[0].SortMode = "random" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseErrorsAreConfigurationErrors(t *testing.T) {
	_, err := Parse([]byte("name: [unclosed"))
	assert.True(t, helpers.IsConfigurationError(err))

	_, err = Parse([]byte("name: test\nhost: 127.0.0.1\nport: 80\n"))
	require.Error(t, err)
	assert.True(t, helpers.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestSaveAndReload(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	cfg.Port = 9999

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.Save(path))

	_, err = os.Stat(path + ".lock")
	assert.NoError(t, err)

	reloaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, reloaded.Port)
	assert.Equal(t, len(cfg.Pages), len(reloaded.Pages))
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
