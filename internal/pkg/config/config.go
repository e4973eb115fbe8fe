package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Survey    SurveyConfig    `mapstructure:"survey"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`

	// RateLimit is requests per minute per IP; 0 disables the limiter.
	RateLimit    int    `mapstructure:"rate_limit"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SurveyConfig is the per-deployment survey configuration.
type SurveyConfig struct {
	Persistence         domain.PersistenceMode `mapstructure:"persistence"`
	Namespace           string                 `mapstructure:"namespace"`
	Axes                []domain.Axis          `mapstructure:"axes"`
	RequireDemographics bool                   `mapstructure:"require_demographics"`
	HydrateOnLoad       bool                   `mapstructure:"hydrate_on_load"`
	MaxRows             int                    `mapstructure:"max_rows"`
	NoticeDuration      time.Duration          `mapstructure:"notice_duration"`
	CrosshairTick       time.Duration          `mapstructure:"crosshair_tick"`
	ExportPrefix        string                 `mapstructure:"export_prefix"`
	InitialCenter       domain.GeoPoint        `mapstructure:"initial_center"`
	InitialZoom         int                    `mapstructure:"initial_zoom"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MAPSURVEY_SURVEY_PERSISTENCE → survey.persistence
	v.SetEnvPrefix("MAPSURVEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return decode(v)
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "survey")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "mapsurvey")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "survey-archive")
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("survey.persistence", string(domain.PersistenceLocal))
	v.SetDefault("survey.namespace", "mapsurvey")
	v.SetDefault("survey.require_demographics", false)
	v.SetDefault("survey.hydrate_on_load", false)
	v.SetDefault("survey.max_rows", 500)
	v.SetDefault("survey.notice_duration", "3s")
	v.SetDefault("survey.crosshair_tick", "16ms")
	v.SetDefault("survey.export_prefix", "mapsurvey")
	v.SetDefault("survey.initial_center.lat", 47.0707)
	v.SetDefault("survey.initial_center.lng", 15.4395)
	v.SetDefault("survey.initial_zoom", 13)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Survey.Axes) == 0 {
		cfg.Survey.Axes = domain.DefaultAxes()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
// Backend settings are only required by the persistence mode that uses them.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must not be negative")
	}

	switch c.Survey.Persistence {
	case domain.PersistenceRemote:
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	case domain.PersistenceLocal:
		if c.Valkey.Addr == "" {
			errs = append(errs, "valkey.addr is required")
		}
	case domain.PersistenceNone:
	default:
		errs = append(errs, fmt.Sprintf("survey.persistence must be none, local or remote, got %q", c.Survey.Persistence))
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Temporal.Enabled && c.Temporal.HostPort == "" {
		errs = append(errs, "temporal.host_port is required")
	}
	if c.Survey.Namespace == "" {
		errs = append(errs, "survey.namespace is required")
	}
	if c.Survey.MaxRows <= 0 {
		errs = append(errs, "survey.max_rows must be positive")
	}
	if c.Survey.NoticeDuration <= 0 {
		errs = append(errs, "survey.notice_duration must be positive")
	}
	seen := make(map[string]bool, len(c.Survey.Axes))
	for i, a := range c.Survey.Axes {
		switch {
		case a.Key == "":
			errs = append(errs, fmt.Sprintf("survey.axes[%d].key is required", i))
		case seen[a.Key]:
			errs = append(errs, fmt.Sprintf("survey.axes[%d].key %q is repeated", i, a.Key))
		}
		seen[a.Key] = true
		if a.Max < 1 {
			errs = append(errs, fmt.Sprintf("survey.axes[%d].max must be at least 1", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
