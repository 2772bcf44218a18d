package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path"`
}

// SchedulingConfig owns every constant the scheduling engine depends on.
// The engine itself never hardcodes working hours, granularities, keyword
// sets or per-view stacking policy.
type SchedulingConfig struct {
	StartHour              int      `mapstructure:"start_hour"`
	EndHour                int      `mapstructure:"end_hour"`
	DayGranularityMinutes  int      `mapstructure:"day_granularity_minutes"`
	WeekGranularityMinutes int      `mapstructure:"week_granularity_minutes"`
	UrgencyKeywords        []string `mapstructure:"urgency_keywords"`
	EmergencyTypes         []string `mapstructure:"emergency_types"`
	DayViewStacking        bool     `mapstructure:"day_view_stacking"`
	WeekViewStacking       bool     `mapstructure:"week_view_stacking"`
}

// envOverrides are the secrets taken from the environment on top of the yaml
// file, so credentials never live in the config file.
type envOverrides struct {
	DatabasePassword string `envconfig:"DB_PASSWORD"`
	RedisURL         string `envconfig:"REDIS_URL"`
	AuthSecret       string `envconfig:"AUTH_SECRET"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("agenda", &env); err != nil {
		return nil, fmt.Errorf("failed to read env overrides: %w", err)
	}
	if env.DatabasePassword != "" {
		config.Database.Password = env.DatabasePassword
	}
	if env.RedisURL != "" {
		config.Redis.URL = env.RedisURL
	}
	if env.AuthSecret != "" {
		config.Auth.Secret = env.AuthSecret
	}

	if err := config.Scheduling.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("scheduling.start_hour", 7)
	viper.SetDefault("scheduling.end_hour", 21)
	viper.SetDefault("scheduling.day_granularity_minutes", 15)
	viper.SetDefault("scheduling.week_granularity_minutes", 60)
	viper.SetDefault("scheduling.urgency_keywords", []string{"urgente", "dolor"})
	viper.SetDefault("scheduling.emergency_types", []string{"emergency", "emergencia", "urgencia"})
	viper.SetDefault("scheduling.day_view_stacking", true)
	viper.SetDefault("scheduling.week_view_stacking", false)
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 50.0)
	viper.SetDefault("rate_limit.burst", 100)
	viper.SetDefault("monitoring.prometheus_enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
}

func (c SchedulingConfig) validate() error {
	if c.StartHour < 0 || c.EndHour > 24 || c.StartHour >= c.EndHour {
		return fmt.Errorf("invalid working hours %d-%d", c.StartHour, c.EndHour)
	}
	for _, g := range []int{c.DayGranularityMinutes, c.WeekGranularityMinutes} {
		if g <= 0 || 60%g != 0 {
			return fmt.Errorf("granularity %dm does not divide an hour evenly", g)
		}
	}
	return nil
}
