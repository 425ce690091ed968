package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/repo/memory"
	repopg "github.com/tendant/materialize-demo/pkg/blogsite/repo/postgres"
	"github.com/tendant/materialize-demo/pkg/blogsite/site"
	fsstorage "github.com/tendant/materialize-demo/pkg/blogsite/storage/fs"
	memorystorage "github.com/tendant/materialize-demo/pkg/blogsite/storage/memory"
	s3storage "github.com/tendant/materialize-demo/pkg/blogsite/storage/s3"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// DevelopmentSecretKey is the well-known key used outside production.
const DevelopmentSecretKey = "=!h0b#)nll!h7ovvo+dn@19f@dv9z^k&npip3*5pib%&^0a82h"

// Email backends
const (
	EmailBackendConsole = "console"
	EmailBackendNone    = "none"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           EnvDevelopment,
		Debug:                 true,
		SecretKey:             DevelopmentSecretKey,
		AllowedHosts:          []string{"*"},
		EmailBackend:          EmailBackendConsole,
		DatabaseType:          "memory",
		DBSchema:              "blogsite",
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		APIPrefix:          "/api/v1",
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the blog site
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Site settings
	Debug        bool
	SecretKey    string
	AllowedHosts []string // "*" allows every host
	EmailBackend string   // "console", "none"

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: blogsite)

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig

	// APIPrefix is where the HTTP API is mounted. Page links and image file
	// URLs are built below it.
	APIPrefix string

	// Rendering
	StylesheetURL string
	ScriptURL     string

	// Server options
	EnableEventLogging bool
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// IsProduction reports whether the configuration targets production.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTesting:
	default:
		return fmt.Errorf("environment must be one of %s, %s, %s", EnvDevelopment, EnvProduction, EnvTesting)
	}

	if c.SecretKey == "" {
		return errors.New("secret_key is required")
	}
	if len(c.AllowedHosts) == 0 {
		return errors.New("allowed_hosts cannot be empty")
	}

	if c.IsProduction() {
		if c.Debug {
			return errors.New("debug must be disabled in production")
		}
		if c.SecretKey == DevelopmentSecretKey {
			return errors.New("secret_key must be changed in production")
		}
		for _, host := range c.AllowedHosts {
			if host == "*" {
				return errors.New("allowed_hosts must list explicit hosts in production")
			}
		}
	}

	switch c.EmailBackend {
	case EmailBackendConsole, EmailBackendNone:
	default:
		return fmt.Errorf("unsupported email backend: %s", c.EmailBackend)
	}

	if !strings.HasPrefix(c.APIPrefix, "/") || len(c.APIPrefix) < 2 {
		return fmt.Errorf("api prefix must be a path below the root, got %q", c.APIPrefix)
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	// Ensure default storage backend exists in configured backends
	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (blogsite.Service, error) {
	var options []blogsite.Option

	// Set up repository
	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, blogsite.WithRepository(repo))

	// Set up storage backends
	for _, backendConfig := range c.StorageBackends {
		store, err := c.buildStorageBackend(backendConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Name, err)
		}
		options = append(options, blogsite.WithBlobStore(backendConfig.Name, store))
	}
	options = append(options, blogsite.WithDefaultBlobStore(c.DefaultStorageBackend))

	// Set up event sink
	if c.EnableEventLogging {
		options = append(options, blogsite.WithEventSink(blogsite.NewLoggingEventSink(slog.Default())))
	}

	renderer, err := c.BuildRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to build page renderer: %w", err)
	}
	options = append(options,
		blogsite.WithPageRenderer(renderer),
		blogsite.WithImageURLPrefix(c.APIPrefix),
	)

	return blogsite.New(options...)
}

// BuildRenderer creates the page renderer with links pointing at the API.
func (c *ServerConfig) BuildRenderer() (*site.Renderer, error) {
	opts := []site.Option{site.WithPageURL(site.PageURLWithPrefix(c.APIPrefix))}
	if c.StylesheetURL != "" || c.ScriptURL != "" {
		assets := site.Assets{Stylesheet: site.DefaultStylesheet, Script: site.DefaultScript}
		if c.StylesheetURL != "" {
			assets.Stylesheet = c.StylesheetURL
		}
		if c.ScriptURL != "" {
			assets.Script = c.ScriptURL
		}
		opts = append(opts, site.WithAssets(assets))
	}
	return site.New(opts...)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (blogsite.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := c.newPool(context.Background())
		if err != nil {
			return nil, err
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) newPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	// Optionally set search_path for the connection
	schema := c.DBSchema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// Migrate creates the schema and tables used by the Postgres repository. It
// is a no-op for the memory database.
func (c *ServerConfig) Migrate(ctx context.Context) error {
	if c.DatabaseType != "postgres" {
		return nil
	}

	pool, err := c.newPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if c.DBSchema != "" {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{c.DBSchema}.Sanitize()); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return repopg.Migrate(ctx, pool)
}

// Ping checks that the configured Postgres database accepts connections and
// that DBSchema, when set, can be selected. It is a no-op for the memory
// database.
func (c *ServerConfig) Ping(ctx context.Context) error {
	if c.DatabaseType != "postgres" {
		return nil
	}

	pool, err := c.newPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend(config StorageBackendConfig) (blogsite.BlobStore, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		fsConfig := fsstorage.Config{
			BaseDir:   getString(config.Config, "base_dir", "./data/media"),
			URLPrefix: getString(config.Config, "url_prefix", ""),
		}
		return fsstorage.New(fsConfig)

	case "s3":
		s3Config := s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			KeyPrefix:              getString(config.Config, "key_prefix", ""),
			CacheControl:           getString(config.Config, "cache_control", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			PresignDuration:        getInt(config.Config, "presign_duration", 3600),
			PublicBaseURL:          getString(config.Config, "public_base_url", ""),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		}
		return s3storage.New(s3Config)

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

// HostAllowed reports whether host (with or without port) matches the
// allowed hosts. A leading dot matches the domain and its subdomains.
func (c *ServerConfig) HostAllowed(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)

	for _, allowed := range c.AllowedHosts {
		allowed = strings.ToLower(allowed)
		switch {
		case allowed == "*":
			return true
		case strings.HasPrefix(allowed, "."):
			if host == allowed[1:] || strings.HasSuffix(host, allowed) {
				return true
			}
		case host == allowed:
			return true
		}
	}
	return false
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
