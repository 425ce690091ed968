package main

import (
	"fmt"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/materialize-demo/pkg/blogsite/config"
)

// EnvConfig holds the settings the server reads from the process environment.
type EnvConfig struct {
	Port         string   `env:"PORT" env-default:"8080"`
	Environment  string   `env:"ENVIRONMENT" env-default:"development"`
	Debug        string   `env:"DEBUG"`
	SecretKey    string   `env:"SECRET_KEY"`
	AllowedHosts []string `env:"ALLOWED_HOSTS" env-separator:","`
	EmailBackend string   `env:"EMAIL_BACKEND"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	DBSchema    string `env:"BLOGSITE_DB_SCHEMA" env-default:"blogsite"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" env-default:"true"`

	StorageURL string `env:"STORAGE_URL" env-default:"memory://"`
	MediaURL   string `env:"MEDIA_URL"`

	APIPrefix     string `env:"API_PREFIX" env-default:"/api/v1"`
	StylesheetURL string `env:"STYLESHEET_URL"`
	ScriptURL     string `env:"SCRIPT_URL"`

	EnableEventLogging bool `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
	SeedDemo           bool `env:"SEED_DEMO" env-default:"false"`
}

// loadEnvConfig reads EnvConfig from the environment.
func loadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// Options converts the environment settings into config options. The
// environment preset is applied first so explicit settings override it.
func (e EnvConfig) Options() ([]config.Option, error) {
	opts := []config.Option{
		config.WithEnvironment(e.Environment),
		config.WithPort(e.Port),
		config.WithDatabaseURL(e.DatabaseURL),
		config.WithDatabaseSchema(e.DBSchema),
		config.WithStorageURL(e.StorageURL, e.MediaURL),
		config.WithAPIPrefix(e.APIPrefix),
		config.WithEventLogging(e.EnableEventLogging),
	}

	if e.Debug != "" {
		debug, err := strconv.ParseBool(e.Debug)
		if err != nil {
			return nil, fmt.Errorf("invalid DEBUG value %q: %w", e.Debug, err)
		}
		opts = append(opts, config.WithDebug(debug))
	}
	if e.SecretKey != "" {
		opts = append(opts, config.WithSecretKey(e.SecretKey))
	}
	if len(e.AllowedHosts) > 0 {
		opts = append(opts, config.WithAllowedHosts(e.AllowedHosts...))
	}
	if e.EmailBackend != "" {
		opts = append(opts, config.WithEmailBackend(e.EmailBackend))
	}
	if e.StylesheetURL != "" || e.ScriptURL != "" {
		opts = append(opts, config.WithAssets(e.StylesheetURL, e.ScriptURL))
	}

	return opts, nil
}
