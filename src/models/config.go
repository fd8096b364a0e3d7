package models

// MConfig Structure
type MConfig struct {
	Name          string             `yaml:"name"`
	Host          string             `yaml:"host"`
	Port          int                `yaml:"port"`
	LogLevel      string             `yaml:"log_level"`
	GrpcHost      string             `yaml:"grpc_host"`
	GrpcPort      int                `yaml:"grpc_port"`
	DefaultHours  int                `yaml:"default_hours"`
	MemoryLimitMB int                `yaml:"memory_limit_mb"` // 0 = 75% of RAM, <0 = unlimited
	Storage       MStorageConfig     `yaml:"storage"`
	Breaker       MBreakerConfig     `yaml:"breaker"`
	Refresh       MRefreshConfig     `yaml:"refresh"`
	Aggregation   MAggregationConfig `yaml:"aggregation"`
	Pages         []MPageConfig      `yaml:"pages"`
}

type MStorageConfig struct {
	DBType              string `yaml:"db_type"`
	DBPath              string `yaml:"db_path"`
	DBConnectionString  string `yaml:"db_connection_string"`
	RetentionDays       int    `yaml:"retention_days"`
	MaxRetries          int    `yaml:"max_retries"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
}

type MBreakerConfig struct {
	MaxFailures int `yaml:"max_failures"`
	OpenSeconds int `yaml:"open_seconds"`
}

type MRefreshConfig struct {
	IntervalSeconds         int    `yaml:"interval_seconds"`
	OffHoursIntervalSeconds int    `yaml:"off_hours_interval_seconds"`
	Calendar                string `yaml:"calendar"` // ISO 10383 MIC, optional
}

type MAggregationConfig struct {
	DensityThreshold int    `yaml:"density_threshold"`
	TickStep         int    `yaml:"tick_step"`
	SortMode         string `yaml:"sort_mode"`
}

// MPageConfig describes one dashboard page: what it plots and which queries feed it.
type MPageConfig struct {
	Name             string          `yaml:"name" json:"name"`
	Title            string          `yaml:"title" json:"title"`
	Kind             string          `yaml:"kind" json:"kind"` // timeseries, pie, table
	Series           []MMetricSeries `yaml:"series" json:"series"`
	Queries          []string        `yaml:"queries" json:"-"`
	DensityThreshold int             `yaml:"density_threshold,omitempty" json:"-"`
	TickStep         int             `yaml:"tick_step,omitempty" json:"-"`
	SortMode         string          `yaml:"sort_mode,omitempty" json:"-"`
}
