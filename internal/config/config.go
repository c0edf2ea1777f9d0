// Package config loads the service configuration from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/damacus/iron-transfer/internal/session"
	"github.com/damacus/iron-transfer/internal/storage"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Minio   MinioConfig
	GCS     GCSConfig
	Session SessionConfig
	Redis   RedisConfig
	Upload  UploadConfig
}

type ServerConfig struct {
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Backend string
	Bucket  string
	// Folder is the key prefix every operation is confined to. It is empty
	// or ends with a slash.
	Folder string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    string
}

type GCSConfig struct {
	CredentialsJSON string
}

type SessionConfig struct {
	Key     string
	Backend string
	TTL     time.Duration
}

type RedisConfig struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type UploadConfig struct {
	MaxBytes int64
}

// Load reads envFiles (default ".env", missing files ignored) and the
// process environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		for _, f := range envFiles {
			if f == "" {
				continue
			}
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
			}
		}
	}

	v := viper.New()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SHUTDOWN_TIMEOUT", "5s")
	v.SetDefault("STORAGE_BACKEND", storage.BackendMinio)
	v.SetDefault("FOLDER_NAME", "uploads/")
	v.SetDefault("MINIO_ENDPOINT", "play.min.io:9000")
	v.SetDefault("MINIO_SECURE", "auto")
	v.SetDefault("SESSION_BACKEND", session.BackendMemory)
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("UPLOAD_MAX_BYTES", 32<<20)

	// The GCP_* names are what existing deployments already export.
	_ = v.BindEnv("BUCKET_NAME", "BUCKET_NAME", "GCP_BUCKET_NAME")
	_ = v.BindEnv("FOLDER_NAME", "FOLDER_NAME", "GCP_FOLDER_NAME")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			LogLevel:        v.GetString("LOG_LEVEL"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Bucket:  v.GetString("BUCKET_NAME"),
			Folder:  storage.NormalizePrefix(v.GetString("FOLDER_NAME")),
		},
		Minio: MinioConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Secure:    v.GetString("MINIO_SECURE"),
		},
		GCS: GCSConfig{
			CredentialsJSON: v.GetString("GCP_CREDENTIALS"),
		},
		Session: SessionConfig{
			Key:     v.GetString("SESSION_KEY"),
			Backend: strings.ToLower(v.GetString("SESSION_BACKEND")),
			TTL:     v.GetDuration("SESSION_TTL"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("REDIS_URL"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
	}

	return cfg, nil
}

// Validate reports every problem found in the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("BUCKET_NAME is required"))
	}

	switch c.Storage.Backend {
	case storage.BackendMinio:
		if c.Minio.Endpoint == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT is required for the minio backend"))
		}
	case storage.BackendGCS:
		if c.GCS.CredentialsJSON == "" {
			errs = append(errs, errors.New("GCP_CREDENTIALS is required for the gcs backend"))
		}
	case storage.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}

	switch c.Session.Backend {
	case session.BackendMemory, session.BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend))
	}

	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

// StorageOptions maps the configuration onto storage.Open's options
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend: c.Storage.Backend,
		Bucket:  c.Storage.Bucket,
		Minio: storage.MinioConfig{
			Endpoint:  c.Minio.Endpoint,
			AccessKey: c.Minio.AccessKey,
			SecretKey: c.Minio.SecretKey,
			Secure:    c.Minio.Secure,
			Bucket:    c.Storage.Bucket,
		},
		GCS: storage.GCSConfig{
			Bucket:          c.Storage.Bucket,
			CredentialsJSON: c.GCS.CredentialsJSON,
		},
	}
}

// SessionRedis maps the Redis settings onto the session store's config
func (c *Config) SessionRedis() session.RedisConfig {
	return session.RedisConfig{
		URL:      c.Redis.URL,
		Host:     c.Redis.Host,
		Port:     c.Redis.Port,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}
