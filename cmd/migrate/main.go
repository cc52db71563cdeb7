package main

import (
	"fmt"
	"os"

	"github.com/example/farm2home/internal/config"
	"github.com/example/farm2home/internal/infrastructure/kv"
	"github.com/example/farm2home/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log = log.Named("migrate")

	db, err := kv.ConnectPostgres(cfg.Storage.PostgresURL)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	if err := kv.MigratePostgres(db, log); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
}
