// Package config loads carte configuration from file and environment.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Ownership OwnershipConfig `yaml:"ownership" mapstructure:"ownership"`
	Viewer    ViewerConfig    `yaml:"viewer" mapstructure:"viewer"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SourcesConfig locates the two data documents. Locations may be http(s)://,
// ftp:// or local paths.
type SourcesConfig struct {
	ProjectsURL string  `yaml:"projects_url" mapstructure:"projects_url"`
	RegionsURL  string  `yaml:"regions_url" mapstructure:"regions_url"`
	DataVersion string  `yaml:"data_version" mapstructure:"data_version"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
}

// OwnershipConfig optionally replaces the built-in department -> antenna table.
type OwnershipConfig struct {
	TablePath string `yaml:"table_path" mapstructure:"table_path"`
}

// ViewerConfig tunes viewer sessions.
type ViewerConfig struct {
	DebounceMillis int      `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	ClusterRadius  int      `yaml:"cluster_radius" mapstructure:"cluster_radius"`
	SessionTTLMins int      `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
	Categories     []string `yaml:"categories" mapstructure:"categories"`
	ShowOffices    bool     `yaml:"show_offices" mapstructure:"show_offices"`
	ProjectMinZoom int      `yaml:"project_min_zoom" mapstructure:"project_min_zoom"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	StaticDir   string   `yaml:"static_dir" mapstructure:"static_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load(".env")

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CARTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.projects_url", "export_projets_web.json")
	v.SetDefault("sources.regions_url", "departements.geojson")
	v.SetDefault("sources.data_version", "2026-02-17b")
	v.SetDefault("sources.timeout_secs", 15)
	v.SetDefault("sources.user_agent", "carte/1.0")
	v.SetDefault("sources.rate_per_host", 5.0)
	v.SetDefault("viewer.debounce_ms", 200)
	v.SetDefault("viewer.cluster_radius", 10)
	v.SetDefault("viewer.session_ttl_mins", 60)
	v.SetDefault("viewer.categories", []string{"AMO", "MOM", "EXP"})
	v.SetDefault("viewer.show_offices", true)
	v.SetDefault("viewer.project_min_zoom", 14)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is the command name.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Sources.RegionsURL == "" {
		errs = append(errs, "sources.regions_url is required")
	}
	if c.Sources.ProjectsURL == "" {
		errs = append(errs, "sources.projects_url is required")
	}
	if c.Sources.TimeoutSecs <= 0 {
		errs = append(errs, "sources.timeout_secs must be positive")
	}
	if c.Viewer.DebounceMillis < 0 {
		errs = append(errs, "viewer.debounce_ms must not be negative")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Viewer.SessionTTLMins <= 0 {
			errs = append(errs, "viewer.session_ttl_mins must be positive")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
