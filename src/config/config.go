package config

import (
	"fmt"
	"os"

	"request-monitor/src/helpers"
	"request-monitor/src/models"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config is the loaded dashboard configuration.
type Config struct {
	*models.MConfig
}

var validKinds = map[string]bool{
	models.PageKindTimeseries: true,
	models.PageKindPie:        true,
	models.PageKindTable:      true,
}

var validSortModes = map[string]bool{
	"":              true,
	"lexical":       true,
	"chronological": true,
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills optional settings left empty in the file.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.DefaultHours <= 0 {
		c.DefaultHours = 1
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.RetentionDays <= 0 {
		c.Storage.RetentionDays = 7
	}
	if c.Storage.MaxRetries <= 0 {
		c.Storage.MaxRetries = 3
	}
	if c.Storage.QueryTimeoutSeconds <= 0 {
		c.Storage.QueryTimeoutSeconds = 10
	}
	if c.Breaker.MaxFailures <= 0 {
		c.Breaker.MaxFailures = 5
	}
	if c.Breaker.OpenSeconds <= 0 {
		c.Breaker.OpenSeconds = 30
	}
	if c.Refresh.IntervalSeconds <= 0 {
		c.Refresh.IntervalSeconds = 60
	}
	if c.Refresh.OffHoursIntervalSeconds <= 0 {
		c.Refresh.OffHoursIntervalSeconds = c.Refresh.IntervalSeconds
	}
	if c.Aggregation.DensityThreshold <= 0 {
		c.Aggregation.DensityThreshold = 20
	}
	if c.Aggregation.TickStep <= 0 {
		c.Aggregation.TickStep = 5
	}
	if c.Aggregation.SortMode == "" {
		c.Aggregation.SortMode = "lexical"
	}
	for i := range c.Pages {
		page := &c.Pages[i]
		if page.Title == "" {
			page.Title = page.Name
		}
		for j := range page.Series {
			s := &page.Series[j]
			if s.Label == "" {
				s.Label = s.Name
			}
			if s.Axis == "" {
				s.Axis = models.AxisLeft
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	if !validSortModes[c.Aggregation.SortMode] {
		return fmt.Errorf("unknown aggregation sort mode: %s", c.Aggregation.SortMode)
	}

	// Pages
	if len(c.Pages) == 0 {
		return fmt.Errorf("at least one page must be configured")
	}
	names := make(map[string]bool)
	for i, page := range c.Pages {
		if page.Name == "" {
			return fmt.Errorf("page %d must have a name", i)
		}
		if names[page.Name] {
			return fmt.Errorf("page '%s' is defined twice", page.Name)
		}
		names[page.Name] = true

		if !validKinds[page.Kind] {
			return fmt.Errorf("page '%s' has unknown kind '%s'", page.Name, page.Kind)
		}
		if len(page.Queries) == 0 {
			return fmt.Errorf("page '%s' must have at least one query", page.Name)
		}
		if !validSortModes[page.SortMode] {
			return fmt.Errorf("page '%s' has unknown sort mode '%s'", page.Name, page.SortMode)
		}
		if page.Kind == models.PageKindTimeseries && len(page.Series) == 0 {
			return fmt.Errorf("timeseries page '%s' must declare at least one series", page.Name)
		}
		for _, s := range page.Series {
			if s.Name == "" {
				return fmt.Errorf("page '%s' has a series without a name", page.Name)
			}
			if s.Axis != models.AxisLeft && s.Axis != models.AxisRight {
				return fmt.Errorf("page '%s' series '%s' has invalid axis '%s'", page.Name, s.Name, s.Axis)
			}
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Page returns the page definition with the given name.
func (c *Config) Page(name string) (models.MPageConfig, bool) {
	for _, p := range c.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return models.MPageConfig{}, false
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path.
// A sibling .lock file serialises concurrent writers.
func (c *Config) Save(configPath string) error {
	// 1. Marshal
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Lock
	lock := flock.New(configPath + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock config file '%s': %w", configPath, err)
	}
	defer lock.Unlock()

	// 3. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
