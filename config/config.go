package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the composer backend
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Databases DatabasesConfig `mapstructure:"databases"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Sync      SyncConfig      `mapstructure:"sync"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen       string `mapstructure:"listen"`
	Debug        bool   `mapstructure:"debug"`
	DefaultModel string `mapstructure:"default_model"`
}

// ProvidersConfig groups the remote completion backends
type ProvidersConfig struct {
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
}

// ProviderConfig is the per-backend credential and transport configuration
type ProviderConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabasesConfig contains storage connection settings
type DatabasesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("databases.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("databases.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("databases.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("databases.redis.port required")
	}
	return nil
}

// Addr returns the host:port address for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// MemoryConfig contains the external memory API settings
type MemoryConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Container string        `mapstructure:"container"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Normalize applies defaults for unset memory API values.
func (m MemoryConfig) Normalize() MemoryConfig {
	if strings.TrimSpace(m.BaseURL) == "" {
		m.BaseURL = "https://api.supermemory.ai/v3"
	}
	if strings.TrimSpace(m.Container) == "" {
		m.Container = "ai-composer"
	}
	if m.Timeout <= 0 {
		m.Timeout = 30 * time.Second
	}
	return m
}

// ScraperConfig controls the headless page fetcher
type ScraperConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// Normalize applies defaults for unset scraper values.
func (s ScraperConfig) Normalize() ScraperConfig {
	if s.Timeout <= 0 {
		s.Timeout = 45 * time.Second
	}
	if s.MaxChars <= 0 {
		s.MaxChars = 20000
	}
	return s
}

// SyncConfig controls the background memory sync job
type SyncConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CronSpec string `mapstructure:"cron_spec"`
	Batch    int    `mapstructure:"batch"`
}

// Normalize applies defaults for unset sync values.
func (s SyncConfig) Normalize() SyncConfig {
	if strings.TrimSpace(s.CronSpec) == "" {
		s.CronSpec = "@hourly"
	}
	if s.Batch <= 0 {
		s.Batch = 50
	}
	return s
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.listen", ":8000")
	viper.SetDefault("general.default_model", "fallback")
	viper.SetDefault("providers.openai.timeout", 30*time.Second)
	viper.SetDefault("providers.anthropic.timeout", 30*time.Second)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("COMPOSER")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Memory = config.Memory.Normalize()
	config.Scraper = config.Scraper.Normalize()
	config.Sync = config.Sync.Normalize()

	if err := config.Databases.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Databases.Redis.Validate(); err != nil {
		panic(err)
	}
	return &config
}
