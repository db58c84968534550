// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	TGVMax   TGVMaxConfig            `mapstructure:"tgvmax"`
	Database DatabaseConfig          `mapstructure:"database"`
	Journal  JournalConfig           `mapstructure:"journal"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	UsePlaintext   bool   `mapstructure:"use_plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// TGVMaxConfig describes the remote planner and batch defaults.
type TGVMaxConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	UserAgent        string `mapstructure:"user_agent"`
	AcceptLanguage   string `mapstructure:"accept_language"`
	Origin           string `mapstructure:"origin"`
	Timeout          int    `mapstructure:"timeout"` // milliseconds
	DefaultOperation string `mapstructure:"default_operation"`
	ContinueOnFail   bool   `mapstructure:"continue_on_fail"`
	FanOutArrays     bool   `mapstructure:"fan_out_arrays"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JournalConfig controls the Redis run journal.
type JournalConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	MaxEntries int    `mapstructure:"max_entries"`
	TTL        int    `mapstructure:"ttl"` // seconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the health/metrics listener settings.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
