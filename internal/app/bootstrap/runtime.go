// Package bootstrap assembles the server side of MediPulse from
// configuration. cmd/api and cmd/lambda share it.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/medipulse/internal/config"
	"github.com/wolfman30/medipulse/internal/store"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// AWSLoader resolves the shared AWS SDK configuration on first use.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// OpenBackend returns the storage backend named by cfg.StorageBackend. A
// durable backend that cannot be reached at startup degrades to memory so
// the service keeps answering.
func OpenBackend(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (store.Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.StorageBackend {
	case appconfig.BackendMemory:
		return store.NewMemoryBackend(), nil
	case appconfig.BackendFile:
		b, err := store.NewFileBackend(cfg.DataDir)
		if err != nil {
			logger.Warn("data directory unusable, using memory", "dir", cfg.DataDir, "error", err)
			return store.NewMemoryBackend(), nil
		}
		return b, nil
	case appconfig.BackendRedis:
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return store.NewMemoryBackend(), nil
		}
		return store.NewRedisBackend(client, cfg.RedisKeyPrefix), nil
	case appconfig.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("postgres not available, using memory", "error", err)
			pool.Close()
			return store.NewMemoryBackend(), nil
		}
		return store.NewPostgresBackend(pool), nil
	case appconfig.BackendS3, appconfig.BackendDynamo:
		if loadAWS == nil {
			return nil, fmt.Errorf("bootstrap: aws config required for %s backend", cfg.StorageBackend)
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		if cfg.StorageBackend == appconfig.BackendS3 {
			client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
				o.UsePathStyle = cfg.AWSEndpointOverride != ""
			})
			return store.NewS3Backend(client, cfg.S3Bucket, cfg.S3Prefix), nil
		}
		return store.NewDynamoBackend(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown storage backend %q", cfg.StorageBackend)
	}
}
