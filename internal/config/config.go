package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// DefaultHost is the address of a local n8n instance.
const DefaultHost = "http://localhost:5678"

// Config holds the configuration for the application.
type Config struct {
	N8N struct {
		Host    string        `mapstructure:"host"`
		APIKey  string        `mapstructure:"api_key"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"n8n"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Server struct {
		Address string `mapstructure:"address"`
		APIKey  string `mapstructure:"api_key"`
		TLS     struct {
			Enable    bool     `mapstructure:"enable"`
			CertFile  string   `mapstructure:"cert_file"`
			KeyFile   string   `mapstructure:"key_file"`
			Hostnames []string `mapstructure:"hostnames"`
		} `mapstructure:"tls"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

var defaults = map[string]interface{}{
	"n8n.host":             DefaultHost,
	"n8n.api_key":          "",
	"n8n.timeout":          30 * time.Second,
	"db.host":              "",
	"db.port":              5432,
	"db.user":              "",
	"db.password":          "",
	"db.name":              "n8n_workflows",
	"db.sslmode":           "disable",
	"server.address":       ":8080",
	"server.api_key":       "",
	"server.tls.enable":    false,
	"server.tls.cert_file": "",
	"server.tls.key_file":  "",
	"server.tls.hostnames": []string{},
	"log.level":            "info",
}

// LoadConfig loads the configuration from defaults, an optional
// config.yaml, and the environment. Variables from envFile (or ./.env when
// envFile is empty) are added to the environment without overriding
// variables that are already set. Keys map to variables by upper-casing and
// replacing dots with underscores, so n8n.api_key is N8N_API_KEY.
func LoadConfig(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.N8N.Host = NormalizeHost(config.N8N.Host)
	config.N8N.APIKey = strings.TrimSpace(config.N8N.APIKey)

	return &config, nil
}

// DatabaseConfigured reports whether deployment history can be stored.
func (c *Config) DatabaseConfigured() bool {
	return c.DB.Host != ""
}

// DatabaseURL returns a libpq-style connection string for pgx.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// NormalizeHost trims whitespace, trailing slashes and a trailing /api/v1
// so both "http://host:5678" and "http://host:5678/api/v1/" are accepted.
func NormalizeHost(input string) string {
	host := strings.TrimRight(strings.TrimSpace(input), "/")
	host = strings.TrimSuffix(host, "/api/v1")
	host = strings.TrimRight(host, "/")
	if host == "" {
		return DefaultHost
	}
	return host
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
