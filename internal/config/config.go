package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	HTTPAddr      string        `mapstructure:"HTTP_ADDR"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	ContactPolicy string        `mapstructure:"CONTACT_POLICY"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`
	KafkaBrokers  string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic    string        `mapstructure:"KAFKA_TOPIC"`
}

var AppConfig *Config

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"database-url": "DATABASE_URL",
	"addr":         "HTTP_ADDR",
	"log-level":    "LOG_LEVEL",
	"policy":       "CONTACT_POLICY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "sqlite://contactbook.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CONTACT_POLICY", "accepted")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "contact-events")
}

// Load reads the configuration from a .env file, environment variables and,
// when given, command line flags. Flags win over the environment, which wins
// over the .env file.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	AppConfig = &cfg
	return &cfg, nil
}

// ValidateServe checks the settings the HTTP server cannot run without.
func (c *Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.RedisAddr != "" && c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when REDIS_ADDR is set, got %s", c.CacheTTL)
	}
	return nil
}
