package config

import (
	"fmt"
	"strings"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment and applies its preset: production
// turns debug off, the other environments turn it on.
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		switch env {
		case EnvProduction:
			c.Debug = false
		case EnvDevelopment, EnvTesting:
			c.Debug = true
		case "":
			return fmt.Errorf("environment cannot be empty")
		default:
			return fmt.Errorf("unknown environment: %s", env)
		}
		c.Environment = env
		return nil
	}
}

// WithDebug toggles debug mode
func WithDebug(debug bool) Option {
	return func(c *ServerConfig) error {
		c.Debug = debug
		return nil
	}
}

// WithSecretKey sets the secret key
func WithSecretKey(key string) Option {
	return func(c *ServerConfig) error {
		if key == "" {
			return fmt.Errorf("secret key cannot be empty")
		}
		c.SecretKey = key
		return nil
	}
}

// WithAllowedHosts sets the host names the server answers to
func WithAllowedHosts(hosts ...string) Option {
	return func(c *ServerConfig) error {
		if len(hosts) == 0 {
			return fmt.Errorf("at least one allowed host is required")
		}
		c.AllowedHosts = append([]string(nil), hosts...)
		return nil
	}
}

// WithEmailBackend selects where outgoing mail goes
func WithEmailBackend(backend string) Option {
	return func(c *ServerConfig) error {
		c.EmailBackend = backend
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithDefaultStorage sets the default storage backend name
func WithDefaultStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("default storage backend name cannot be empty")
		}
		c.DefaultStorageBackend = name
		return nil
	}
}

// WithMemoryStorage adds an in-memory storage backend
// If name is empty, defaults to "memory"
func WithMemoryStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "memory"
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{Name: name, Type: "memory"})
		return nil
	}
}

// WithFilesystemStorage adds a filesystem storage backend
// If name is empty, defaults to "fs"
func WithFilesystemStorage(name, baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "fs"
		}
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}

		backend := StorageBackendConfig{
			Name: name,
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir": baseDir,
			},
		}
		if urlPrefix != "" {
			backend.Config["url_prefix"] = urlPrefix
		}

		c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
		return nil
	}
}

// WithS3Storage adds an S3 storage backend
// If name is empty, defaults to "s3"
func WithS3Storage(name, bucket, region string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}

		backend := StorageBackendConfig{
			Name: name,
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
		return nil
	}
}

// WithS3Endpoint points an S3 backend at a compatible service such as MinIO
func WithS3Endpoint(name, endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		i := indexOfBackend(c.StorageBackends, name)
		if i < 0 || c.StorageBackends[i].Type != "s3" {
			return fmt.Errorf("S3 backend %q must be configured before its endpoint", name)
		}
		c.StorageBackends[i].Config["endpoint"] = endpoint
		c.StorageBackends[i].Config["use_path_style"] = usePathStyle
		return nil
	}
}

// WithS3Credentials sets static credentials for an S3 backend
func WithS3Credentials(name, accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		i := indexOfBackend(c.StorageBackends, name)
		if i < 0 || c.StorageBackends[i].Type != "s3" {
			return fmt.Errorf("S3 backend %q must be configured before its credentials", name)
		}
		c.StorageBackends[i].Config["access_key_id"] = accessKeyID
		c.StorageBackends[i].Config["secret_access_key"] = secretAccessKey
		return nil
	}
}

// WithAPIPrefix sets where the HTTP API is mounted
func WithAPIPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		c.APIPrefix = strings.TrimRight(prefix, "/")
		return nil
	}
}

// WithAssets overrides the Materialize stylesheet and script URLs
func WithAssets(stylesheetURL, scriptURL string) Option {
	return func(c *ServerConfig) error {
		c.StylesheetURL = stylesheetURL
		c.ScriptURL = scriptURL
		return nil
	}
}

// WithEventLogging enables or disables lifecycle event logging
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithProductionDefaults applies the production preset: debug off, the
// given secret key and explicit hosts.
func WithProductionDefaults(secretKey string, hosts ...string) Option {
	return func(c *ServerConfig) error {
		if err := WithEnvironment(EnvProduction)(c); err != nil {
			return err
		}
		if err := WithSecretKey(secretKey)(c); err != nil {
			return err
		}
		return WithAllowedHosts(hosts...)(c)
	}
}

// WithMediaURLPrefix sets the public URL prefix images of a filesystem or
// S3 backend are served from
func WithMediaURLPrefix(name, prefix string) Option {
	return func(c *ServerConfig) error {
		i := indexOfBackend(c.StorageBackends, name)
		if i < 0 {
			return fmt.Errorf("storage backend %q is not configured", name)
		}
		switch c.StorageBackends[i].Type {
		case "fs":
			c.StorageBackends[i].Config["url_prefix"] = prefix
		case "s3":
			c.StorageBackends[i].Config["public_base_url"] = prefix
		default:
			return fmt.Errorf("storage backend %q cannot serve images directly", name)
		}
		return nil
	}
}
