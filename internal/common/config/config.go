// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	NLP      NLPConfig      `mapstructure:"nlp"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int `mapstructure:"write_timeout"` // milliseconds
}

// PipelineConfig holds the tunables of the query resolution pipeline.
type PipelineConfig struct {
	// ReferenceYear is the year assumed for bare quarters/months
	// ("Q1" → "<reference_year>-Q1"). Configurable rather than hardcoded
	// because the right default depends on the loaded dataset.
	ReferenceYear string `mapstructure:"reference_year"`
	// FuzzyThreshold is the minimum string similarity for an unmatched
	// entity to count as a disambiguation candidate.
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	// HistoryWindow is the number of recent turns handed to the NL
	// collaborators as conversation context.
	HistoryWindow int `mapstructure:"history_window"`
	// CacheTTL is the query result cache lifetime in seconds. Zero
	// disables caching.
	CacheTTL int `mapstructure:"cache_ttl"`
}

// NLPConfig holds settings for the external NL collaborator service.
type NLPConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// LedgerConfig holds settings for the tabular data provider.
type LedgerConfig struct {
	// Source selects the loader: "postgres" or "csv".
	Source  string `mapstructure:"source"`
	Table   string `mapstructure:"table"`
	CSVPath string `mapstructure:"csv_path"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
