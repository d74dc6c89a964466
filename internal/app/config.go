package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the CampusFlow backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Reminders  RemindersConfig  `mapstructure:"reminders"`
	Uploads    UploadsConfig    `mapstructure:"uploads"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SourcesConfig describes the external record sources.
type SourcesConfig struct {
	Feed SourceEndpointConfig `mapstructure:"feed"`
	Peer SourceEndpointConfig `mapstructure:"peer"`
}

// SourceEndpointConfig configures one external source endpoint.
type SourceEndpointConfig struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SyncOnStart bool          `mapstructure:"sync_on_start"`
}

// RemindersConfig configures the due-date reminder sweeper.
type RemindersConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Schedule         string `mapstructure:"schedule"`
	ThresholdMinutes int    `mapstructure:"threshold_minutes"`
}

// Threshold converts the configured minutes into a duration.
func (c RemindersConfig) Threshold() time.Duration {
	return time.Duration(c.ThresholdMinutes) * time.Minute
}

// UploadsConfig configures local upload storage.
type UploadsConfig struct {
	Dir string `mapstructure:"dir"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CAMPUSFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/campusflow.sqlite")

	v.SetDefault("sources.feed.url", "http://localhost:5000")
	v.SetDefault("sources.feed.timeout", "5s")
	v.SetDefault("sources.feed.sync_on_start", false)
	v.SetDefault("sources.peer.url", "http://localhost:5001")
	v.SetDefault("sources.peer.timeout", "5s")
	v.SetDefault("sources.peer.sync_on_start", false)

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.schedule", "@every 1m")
	v.SetDefault("reminders.threshold_minutes", 1440)

	v.SetDefault("uploads.dir", "./data/uploads")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
