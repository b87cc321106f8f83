package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clinical-assessment-server/internal/database"
)

// Config is the complete server configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	History    HistoryConfig    `mapstructure:"history"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Patients   PatientsConfig   `mapstructure:"patients"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// HistoryConfig selects and configures the assessment history store.
// Backend is "sqlite" or "postgres".
type HistoryConfig struct {
	Backend    string         `mapstructure:"backend"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	Database   DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig represents PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// PredictionConfig represents the inference backend client configuration.
type PredictionConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      int           `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	BreakerEnabled bool          `mapstructure:"breaker_enabled"`
}

// PatientsConfig represents the patient directory client configuration.
type PatientsConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// CacheConfig represents the optional shared Redis cache tier.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Manager loads and validates configuration via Viper.
type Manager struct {
	config *Config
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/clinical-assessment-server/")

	viper.SetEnvPrefix("CLINICAL_ASSIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and environment variables apply
	// when it is absent.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// History store defaults
	viper.SetDefault("history.backend", "sqlite")
	viper.SetDefault("history.sqlite_path", "./data/assessments.db")
	viper.SetDefault("history.database.host", "localhost")
	viper.SetDefault("history.database.port", 5432)
	viper.SetDefault("history.database.database", "clinical_assessments")
	viper.SetDefault("history.database.username", "postgres")
	viper.SetDefault("history.database.password", "")
	viper.SetDefault("history.database.ssl_mode", "disable")
	viper.SetDefault("history.database.max_open_conns", 25)
	viper.SetDefault("history.database.max_idle_conns", 5)
	viper.SetDefault("history.database.conn_max_lifetime", "5m")
	viper.SetDefault("history.database.migrations_path", "./migrations")

	// Prediction service defaults
	viper.SetDefault("prediction.base_url", "http://localhost:5000")
	viper.SetDefault("prediction.timeout", "30s")
	viper.SetDefault("prediction.rate_limit", 10)
	viper.SetDefault("prediction.rate_burst", 5)
	viper.SetDefault("prediction.breaker_enabled", true)

	// Patient directory defaults
	viper.SetDefault("patients.base_url", "http://localhost:6000")
	viper.SetDefault("patients.timeout", "10s")
	viper.SetDefault("patients.cache_size", 1024)
	viper.SetDefault("patients.cache_ttl", "5m")

	// Cache defaults
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "5m")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetServerConfig returns server configuration.
func (m *Manager) GetServerConfig() *ServerConfig {
	return &m.config.Server
}

// GetHistoryConfig returns history store configuration.
func (m *Manager) GetHistoryConfig() *HistoryConfig {
	return &m.config.History
}

// Reload reloads the configuration.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.History.Backend {
	case "sqlite":
		if config.History.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite history backend")
		}
	case "postgres":
		db := config.History.Database
		if db.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if db.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if db.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("invalid history backend: %s", config.History.Backend)
	}

	if config.Prediction.BaseURL == "" {
		return fmt.Errorf("prediction service base URL is required")
	}
	if config.Patients.BaseURL == "" {
		return fmt.Errorf("patient directory base URL is required")
	}
	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when the cache is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// DatabaseConnectionURL returns the PostgreSQL connection string in URL form.
func (m *Manager) DatabaseConnectionURL() string {
	db := m.config.History.Database
	return database.Config{
		Host:     db.Host,
		Port:     db.Port,
		Database: db.Database,
		Username: db.Username,
		Password: db.Password,
		SSLMode:  db.SSLMode,
	}.URL()
}

// PoolConfig maps the history database section onto the pgx pool settings.
func (m *Manager) PoolConfig() database.Config {
	db := m.config.History.Database
	return database.Config{
		Host:        db.Host,
		Port:        db.Port,
		Database:    db.Database,
		Username:    db.Username,
		Password:    db.Password,
		MaxConns:    int32(db.MaxOpenConns),
		MinConns:    int32(db.MaxIdleConns),
		MaxConnLife: db.ConnMaxLifetime,
		MaxConnIdle: 30 * time.Minute,
		SSLMode:     db.SSLMode,
	}
}

// IsProduction returns true if running in production mode.
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}
