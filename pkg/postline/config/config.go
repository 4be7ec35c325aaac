// Package config loads server configuration from the environment and builds
// the wired postline service from it.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postline/postline/pkg/postline"
	memoryrepo "github.com/postline/postline/pkg/postline/repo/memory"
	pgrepo "github.com/postline/postline/pkg/postline/repo/postgres"
	fsstorage "github.com/postline/postline/pkg/postline/storage/fs"
	memorystorage "github.com/postline/postline/pkg/postline/storage/memory"
	s3storage "github.com/postline/postline/pkg/postline/storage/s3"
)

// Config is the server configuration, populated from environment variables.
// With everything left at defaults the server runs fully in-memory.
type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// MaxAttachments caps the media batch of one create request
	MaxAttachments int `env:"MAX_ATTACHMENTS" env-default:"10"`

	DB      DbConfig
	Storage StorageConfig
}

// DbConfig selects the repository. An empty URL (or "memory") means the
// in-memory repository.
type DbConfig struct {
	URL string `env:"DATABASE_URL" env-default:""`
}

// StorageConfig selects the media storage backend: "memory", "fs" or "s3".
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND" env-default:"memory"`

	FSBaseDir   string `env:"STORAGE_FS_DIR" env-default:"./data/media"`
	FSURLPrefix string `env:"STORAGE_FS_URL_PREFIX" env-default:""`

	S3 S3Config
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	Bucket          string `env:"AWS_S3_BUCKET" env-default:""`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"true"`
	PublicBaseURL   string `env:"MEDIA_PUBLIC_BASE_URL" env-default:""`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// Load reads configuration from the environment and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.MaxAttachments < 1 {
		return errors.New("max attachments must be at least 1")
	}

	switch c.Storage.Backend {
	case "memory":
	case "fs":
		if c.Storage.FSBaseDir == "" {
			return errors.New("STORAGE_FS_DIR is required for the fs backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("AWS_S3_BUCKET is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (use memory, fs or s3)", c.Storage.Backend)
	}

	if c.DB.URL != "" && c.DB.URL != "memory" {
		u, err := url.Parse(c.DB.URL)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			return fmt.Errorf("unsupported DATABASE_URL format (use 'memory' or 'postgresql://...')")
		}
	}

	return nil
}

// UsesPostgres reports whether the configuration selects the Postgres
// repository.
func (c *Config) UsesPostgres() bool {
	return c.DB.URL != "" && c.DB.URL != "memory"
}

// BuildService wires the repository and storage backend selected by the
// configuration into a postline.Service. The returned cleanup releases any
// database pool and is safe to call on a nil-error result only.
func (c *Config) BuildService(ctx context.Context) (postline.Service, func(), error) {
	cleanup := func() {}

	repo, poolCleanup, err := c.buildRepository(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}
	if poolCleanup != nil {
		cleanup = poolCleanup
	}

	store, err := c.buildBlobStore()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	svc, err := postline.New(
		postline.WithRepository(repo),
		postline.WithBlobStore(store),
		postline.WithMaxAttachments(c.MaxAttachments),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}

func (c *Config) buildRepository(ctx context.Context) (postline.Repository, func(), error) {
	if !c.UsesPostgres() {
		return memoryrepo.New(), nil, nil
	}

	pool, err := pgxpool.New(ctx, c.DB.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pgrepo.NewWithPool(pool), pool.Close, nil
}

func (c *Config) buildBlobStore() (postline.BlobStore, error) {
	switch c.Storage.Backend {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.Storage.FSBaseDir,
			URLPrefix: c.Storage.FSURLPrefix,
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Endpoint:               c.Storage.S3.Endpoint,
			AccessKeyID:            c.Storage.S3.AccessKeyID,
			SecretAccessKey:        c.Storage.S3.SecretAccessKey,
			Bucket:                 c.Storage.S3.Bucket,
			Region:                 c.Storage.S3.Region,
			UsePathStyle:           c.Storage.S3.UsePathStyle,
			PublicBaseURL:          c.Storage.S3.PublicBaseURL,
			CreateBucketIfNotExist: c.Storage.S3.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
}
