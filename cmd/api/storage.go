package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/farm2home/internal/config"
	"github.com/example/farm2home/internal/infrastructure/kv"
	"go.uber.org/zap"
)

// openStore connects the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (kv.Store, func(), error) {
	noop := func() {}

	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory storage, carts and orders are lost on restart")
		return kv.NewMemoryStore(), noop, nil

	case "redis":
		client, err := kv.ConnectRedis(kv.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		s := kv.NewRedisStore(client, "")
		return s, func() { s.Close() }, nil

	case "postgres":
		db, err := kv.ConnectPostgres(cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := kv.MigratePostgres(db, log.Named("migrate")); err != nil {
			db.Close()
			return nil, nil, err
		}
		return kv.NewPostgresStore(db), func() { db.Close() }, nil

	case "sqlite":
		db, err := kv.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s, err := kv.NewGormStore(db)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return s, closeDB, nil

	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return kv.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
